// Package auth はパスワード認証とトークンの発行・更新・失効を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/userman/internal/model"
	"github.com/hitoshi/userman/internal/password"
	"github.com/hitoshi/userman/internal/repository"
)

// TokenIssuer はアクセストークンの発行インターフェース。
// token.Serviceが実装する。検証はミドルウェア側の関心なのでここには含めない。
type TokenIssuer interface {
	// Issue は指定ユーザーIDのアクセストークンを発行する。
	Issue(userID string) (string, error)
	// TTL はアクセストークンの有効期間を返す。
	TTL() time.Duration
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	RefreshTokenTTL time.Duration // リフレッシュトークン有効期間
}

// TokenPair はアクセストークンとリフレッシュトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // アクセストークンの有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	issuer    TokenIssuer
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	issuer TokenIssuer,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		issuer:    issuer,
		config:    config,
	}
}

// Register は新規ユーザーを登録し、トークンペアを発行する。
// username/emailの重複はストアのユニーク制約で検出する。
func (s *Service) Register(ctx context.Context, username, email, plain string) (*model.User, *TokenPair, error) {
	hash, err := password.Hash(plain)
	if err != nil {
		return nil, nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
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
			return nil, nil, apiErr
		}
		return nil, nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, pair, nil
}

// Login はユーザー名またはメールアドレスとパスワードで認証し、トークンペアを発行する。
// 失敗理由（ユーザー不在・パスワード不一致・無効化済み）は区別せずに返す。
func (s *Service) Login(ctx context.Context, login, plain string) (*model.User, *TokenPair, error) {
	user, err := s.findByLogin(ctx, login)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		slog.Warn("login attempt for deactivated user", slog.String("user_id", user.ID))
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !password.Verify(user.PasswordHash, plain) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, pair, nil
}

// Refresh はリフレッシュトークンをローテーションし、新しいトークンペアを発行する。
// 失効済みトークンの提示は再利用とみなし、当該ユーザーの全トークンを失効させる。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rt, err := s.tokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの取得に失敗しました: %w", err)
	}
	if rt == nil {
		return nil, model.NewInvalidRefreshTokenError()
	}

	if rt.Revoked {
		// ローテーション済みトークンの再提示 = 漏えいの疑い。トークン族を全滅させる。
		if err := s.tokenRepo.RevokeAllByUserID(ctx, rt.UserID); err != nil {
			return nil, fmt.Errorf("トークンの一括失効に失敗しました: %w", err)
		}
		slog.Warn("refresh token reuse detected",
			slog.String("user_id", rt.UserID),
			slog.String("token_id", rt.ID),
		)
		return nil, model.NewInvalidRefreshTokenError()
	}

	if rt.ExpiresAt.Before(time.Now()) {
		return nil, model.NewInvalidRefreshTokenError()
	}

	user, err := s.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewInvalidRefreshTokenError()
	}

	access, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンの発行に失敗しました: %w", err)
	}

	newRT, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Rotate(ctx, rt.ID, newRT); err != nil {
		return nil, fmt.Errorf("リフレッシュトークンのローテーションに失敗しました: %w", err)
	}

	slog.Info("refresh token rotated", slog.String("user_id", user.ID))

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newRT.Token,
		ExpiresIn:    int64(s.issuer.TTL().Seconds()),
	}, nil
}

// Logout は提示されたリフレッシュトークンを失効させる。
// 未知のトークンや失効済みトークンはエラーにせず、冪等に成功を返す。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	rt, err := s.tokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("リフレッシュトークンの取得に失敗しました: %w", err)
	}
	if rt == nil || rt.Revoked {
		return nil
	}

	if err := s.tokenRepo.Revoke(ctx, rt.ID); err != nil {
		return fmt.Errorf("リフレッシュトークンの失効に失敗しました: %w", err)
	}

	slog.Info("user logged out", slog.String("user_id", rt.UserID))
	return nil
}

// GetCurrentUser は認証済みユーザーIDから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// findByLogin はユーザー名を優先し、見つからなければメールアドレスで検索する。
func (s *Service) findByLogin(ctx context.Context, login string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = s.userRepo.FindByEmail(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// issueTokenPair はアクセストークンと新規リフレッシュトークンを発行する。
func (s *Service) issueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := s.issuer.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンの発行に失敗しました: %w", err)
	}

	rt, err := s.newRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの保存に失敗しました: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rt.Token,
		ExpiresIn:    int64(s.issuer.TTL().Seconds()),
	}, nil
}

// newRefreshToken は新しいリフレッシュトークンのモデルを組み立てる。
func (s *Service) newRefreshToken(userID string) (*model.RefreshToken, error) {
	opaque, err := generateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("リフレッシュトークンの生成に失敗しました: %w", err)
	}

	now := time.Now()
	return &model.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     opaque,
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
		Revoked:   false,
		CreatedAt: now,
	}, nil
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

// generateOpaqueToken は暗号的に安全なリフレッシュトークン文字列を生成する。
func generateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
