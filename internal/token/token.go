// Package token はJWTアクセストークンの発行と検証を提供する。
// 署名アルゴリズムはHS256に固定し、subクレームにユーザーIDを格納する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 検証失敗の種別センチネル。呼び出し側はerrors.Isで判別できる。
// クライアントへ返すメッセージには使わず、ログ出力の区別に使用する。
var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenInvalid          = errors.New("token invalid")
)

// Service はHS256署名のJWTアクセストークンを発行・検証する。
// アクセストークンは失効管理を持たず、有効期限のみで無効化される。
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService はServiceを生成する。secretが空の場合はエラーを返す。
// 署名鍵の欠落は起動時に検出し、実行時には到達させない。
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

// TTL はアクセストークンの有効期間を返す。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue は指定ユーザーIDのアクセストークンを発行する。
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、subクレームのユーザーIDを返す。
// 失敗時はErrTokenExpired/ErrTokenMalformed/ErrTokenSignatureInvalid/
// ErrTokenInvalidのいずれかをラップしたエラーを返す。
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", classify(err), err)
	}

	if !token.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims.Subject, nil
}

// classify はjwtライブラリの検証エラーを種別センチネルへ丸める。
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenInvalid
	}
}
