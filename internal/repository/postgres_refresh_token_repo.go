package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/userman/internal/model"
)

// PostgresRefreshTokenRepo はPostgreSQLを使用したリフレッシュトークンリポジトリ。
type PostgresRefreshTokenRepo struct {
	db *sql.DB
}

// NewPostgresRefreshTokenRepo はPostgresRefreshTokenRepoを生成する。
func NewPostgresRefreshTokenRepo(db *sql.DB) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: db}
}

// Create はリフレッシュトークンを作成する。
func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Token, token.ExpiresAt, token.Revoked, token.CreatedAt,
	)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return fmt.Errorf("failed to create refresh token: %w", dup)
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// FindByToken はトークン文字列で検索する。見つからない場合はnilを返す。
// 失効済み・期限切れの行も返す。再利用検知のため、判定はサービス層で行う。
func (r *PostgresRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, revoked, created_at
		 FROM refresh_tokens
		 WHERE token = $1`,
		token,
	).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	return rt, nil
}

// Rotate は旧トークンの失効と新トークンの作成を同一トランザクションで行う。
func (r *PostgresRefreshTokenRepo) Rotate(ctx context.Context, oldID string, newToken *model.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 旧トークンを失効させる
	_, err = tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE id = $1`,
		oldID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	// 新トークンを作成する
	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		newToken.ID, newToken.UserID, newToken.Token, newToken.ExpiresAt, newToken.Revoked, newToken.CreatedAt,
	)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return fmt.Errorf("failed to insert new refresh token: %w", dup)
		}
		return fmt.Errorf("failed to insert new refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Revoke は指定IDのトークンを失効させる。
func (r *PostgresRefreshTokenRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllByUserID は指定ユーザーの全トークンを失効させる。
func (r *PostgresRefreshTokenRepo) RevokeAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
