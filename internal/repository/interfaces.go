// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/userman/internal/model"
)

// ユニーク制約違反の判別用センチネルエラー。
// PostgreSQLの23505エラーを制約名で振り分けてサービス層に伝える。
var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateToken    = errors.New("refresh token already exists")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// username/emailが重複している場合はErrDuplicateUsername/ErrDuplicateEmailを
	// ラップしたエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List はユーザー一覧を作成日時昇順（挿入順）で返す。
	// limitが0以下の場合は全件、offsetが0以下の場合は先頭から返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// Update はユーザーの全フィールドを上書き更新する。
	// username/emailの重複はCreateと同様にセンチネルで返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するrefresh_tokensはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
type RefreshTokenRepository interface {
	// Create はリフレッシュトークンを作成する。
	Create(ctx context.Context, token *model.RefreshToken) error

	// FindByToken はトークン文字列で検索する。見つからない場合はnilを返す。
	// 失効済み・期限切れの行も返す。再利用検知のため、判定はサービス層で行う。
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)

	// Rotate は旧トークンの失効と新トークンの作成を同一トランザクションで行う。
	Rotate(ctx context.Context, oldID string, newToken *model.RefreshToken) error

	// Revoke は指定IDのトークンを失効させる。
	Revoke(ctx context.Context, id string) error

	// RevokeAllByUserID は指定ユーザーの全トークンを失効させる。
	// トークン再利用検知時とパスワード変更時に使用する。
	RevokeAllByUserID(ctx context.Context, userID string) error
}
