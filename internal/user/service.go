// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/userman/internal/model"
	"github.com/hitoshi/userman/internal/password"
	"github.com/hitoshi/userman/internal/repository"
)

// TokenRevoker はユーザー単位のトークン一括失効インターフェース。
type TokenRevoker interface {
	RevokeAllByUserID(ctx context.Context, userID string) error
}

// UpdateInput はユーザー更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Username *string
	Email    *string
	Password *string
	IsActive *bool
}

// Service はユーザー管理のサービス層。
// 一覧・取得・作成・更新・退会のビジネスロジックを提供する。
type Service struct {
	userRepo     repository.UserRepository
	tokenRevoker TokenRevoker
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, tokenRevoker TokenRevoker) *Service {
	return &Service{
		userRepo:     userRepo,
		tokenRevoker: tokenRevoker,
	}
}

// List はユーザー一覧を作成日時順で返す。
// limit・offsetが0以下の場合は全件を返す。
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Create は新規ユーザーを作成する。
// username/emailの重複はストアのユニーク制約で検出する。
func (s *Service) Create(ctx context.Context, username, email, plain string) (*model.User, error) {
	hash, err := password.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if apiErr := mapDuplicateError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Update はユーザー情報を部分更新する。本人以外による更新は拒否する。
// パスワードが変更された場合、既存のリフレッシュトークンをすべて失効させる。
func (s *Service) Update(ctx context.Context, actorID, targetID string, in UpdateInput) (*model.User, error) {
	if actorID != targetID {
		return nil, model.NewForbiddenError()
	}

	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	passwordChanged := false
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := password.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
		}
		user.PasswordHash = hash
		passwordChanged = true
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if apiErr := mapDuplicateError(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	if passwordChanged && s.tokenRevoker != nil {
		if err := s.tokenRevoker.RevokeAllByUserID(ctx, targetID); err != nil {
			return nil, fmt.Errorf("トークンの一括失効に失敗しました: %w", err)
		}
		slog.Info("パスワード変更により全トークンを失効しました",
			slog.String("user_id", targetID),
		)
	}

	return user, nil
}

// Delete はユーザーの退会処理を実行する。本人以外による削除は拒否する。
// リフレッシュトークンは外部キーのCASCADEで削除される。
func (s *Service) Delete(ctx context.Context, actorID, targetID string) error {
	if actorID != targetID {
		return model.NewForbiddenError()
	}

	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", targetID),
	)

	if err := s.userRepo.DeleteByID(ctx, targetID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", targetID),
	)

	return nil
}

// mapDuplicateError はリポジトリの重複センチネルをAPIエラーへ変換する。
// 該当しない場合はnilを返す。
func mapDuplicateError(err error) *model.APIError {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return model.NewUsernameTakenError()
	case errors.Is(err, repository.ErrDuplicateEmail):
		return model.NewEmailTakenError()
	}
	return nil
}
