package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hitoshi/userman/internal/middleware"
	"github.com/hitoshi/userman/internal/model"
	"github.com/hitoshi/userman/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// List はユーザー一覧を作成日時順で返す。limit・offsetが0以下の場合は全件。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	// Get は指定IDのユーザーを取得する。
	Get(ctx context.Context, id string) (*model.User, error)
	// Create は新規ユーザーを作成する。
	Create(ctx context.Context, username, email, password string) (*model.User, error)
	// Update はユーザー情報を部分更新する。本人以外による更新は拒否される。
	Update(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error)
	// Delete はユーザーを削除する。本人以外による削除は拒否される。
	Delete(ctx context.Context, actorID, targetID string) error
}

// UserMetricsRecorder はユーザー管理イベントのメトリクス記録インターフェース。
type UserMetricsRecorder interface {
	RecordUserCreated()
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	metrics UserMetricsRecorder
}

// NewUserHandler はUserHandlerを生成する。metricsはnilでもよい。
func NewUserHandler(service UserServiceInterface, metrics UserMetricsRecorder) *UserHandler {
	return &UserHandler{
		service: service,
		metrics: metrics,
	}
}

// createUserRequest はユーザー作成リクエストのボディ。
type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Validate はフィールド制約を検証する。
func (r *createUserRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// updateUserRequest はユーザー更新リクエストのボディ。
// nilのフィールドは変更しない部分更新を行う。
type updateUserRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitnil,min=8,max=72"`
	IsActive *bool   `json:"is_active"`
}

// Validate はフィールド制約を検証する。
func (r *updateUserRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュはフィールド自体を持たない。
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// List はユーザー一覧を取得する。
// GET /users?limit=n&offset=m
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limitは0以上の整数で指定してください"))
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("offsetは0以上の整数で指定してください"))
		return
	}

	users, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]userResponse, len(users))
	for i, u := range users {
		results[i] = toUserResponse(u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// Get はユーザー詳細を取得する。
// GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserIDError(id))
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// Create は新規ユーザーを作成する。
// POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解析できません"))
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	u, err := h.service.Create(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// Update はユーザー情報を部分更新する。
// PUT /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserIDError(id))
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディを解析できません"))
		return
	}

	if req.Username == nil && req.Email == nil && req.Password == nil && req.IsActive == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("更新するフィールドが指定されていません"))
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	u, err := h.service.Update(r.Context(), actorID, id, user.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// Delete はユーザーを削除する。
// DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserIDError(id))
		return
	}

	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// queryInt はクエリパラメータを非負整数として解析する。未指定は0を返す。
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", key, raw)
	}
	return n, nil
}

// validationReason はvalidatorのエラーから先頭の違反内容を短い文字列にする。
func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Sprintf("%sが%s制約を満たしていません", strings.ToLower(e.Field()), e.Tag())
	}
	return "リクエスト内容が不正です"
}

// isAPIErrorCode はエラーが指定コードのAPIErrorかどうかを判定する。
func isAPIErrorCode(err error, code string) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeUsernameTaken, model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCredentials, model.ErrCodeInvalidRefreshToken, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
