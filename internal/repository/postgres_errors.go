package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLのユニーク制約違反を示すSQLSTATEコード。
const uniqueViolation = pq.ErrorCode("23505")

// mapUniqueViolation はユニーク制約違反エラーを制約名に応じた
// センチネルエラーに変換する。該当しない場合はnilを返す。
// 制約名はマイグレーションSQLで明示的に命名したものと一致させる。
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case "users_username_key":
		return ErrDuplicateUsername
	case "users_email_key":
		return ErrDuplicateEmail
	case "refresh_tokens_token_key":
		return ErrDuplicateToken
	}
	return nil
}
