// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/userman/internal/auth"
	"github.com/hitoshi/userman/internal/middleware"
	"github.com/hitoshi/userman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録し、トークンペアを発行する。
	Register(ctx context.Context, username, email, password string) (*model.User, *auth.TokenPair, error)
	// Login はユーザー名またはメールアドレスとパスワードで認証する。
	Login(ctx context.Context, login, password string) (*model.User, *auth.TokenPair, error)
	// Refresh はリフレッシュトークンをローテーションし新しいペアを発行する。
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	// Logout はリフレッシュトークンを失効させる。
	Logout(ctx context.Context, refreshToken string) error
	// GetCurrentUser は認証済みユーザーの情報を取得する。
	GetCurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthMetricsRecorder は認証イベントのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type AuthMetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordUserCreated()
	RecordTokenIssued()
	RecordTokenRevoked()
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetricsRecorder
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, metrics AuthMetricsRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Validate はフィールド制約を検証する。
func (r *registerRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// loginRequest はログインリクエストのボディ。
// loginにはユーザー名またはメールアドレスのどちらかを指定する。
type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate はフィールド制約を検証する。
func (r *loginRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// refreshRequest はトークン更新・ログアウトリクエストのボディ。
type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Validate はフィールド制約を検証する。
func (r *refreshRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// tokenResponse はトークンペアのAPIレスポンス。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// authResponse はユーザー登録のレスポンス。作成したユーザーとトークンを併せて返す。
type authResponse struct {
	User userResponse `json:"user"`
	tokenResponse
}

// toTokenResponse はauth.TokenPairからAPIレスポンスに変換する。
func toTokenResponse(pair *auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.ExpiresIn,
	}
}

// Register は新規ユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解析できません"))
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	user, pair, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserCreated()
		h.metrics.RecordTokenIssued()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResponse{
		User:          toUserResponse(user),
		tokenResponse: toTokenResponse(pair),
	})
}

// Login はユーザー名またはメールアドレスとパスワードで認証し、トークンペアを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解析できません"))
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	_, pair, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if h.metrics != nil && isAPIErrorCode(err, model.ErrCodeInvalidCredentials) {
			h.metrics.RecordLoginFailure()
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
		h.metrics.RecordTokenIssued()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTokenResponse(pair))
}

// Refresh はリフレッシュトークンをローテーションし、新しいトークンペアを返す。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解析できません"))
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTokenIssued()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTokenResponse(pair))
}

// Logout は提示されたリフレッシュトークンを失効させる。
// 未知のトークンでも204を返す（冪等）。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解析できません"))
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTokenRevoked()
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}
