package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/userman/internal/auth"
	"github.com/hitoshi/userman/internal/middleware"
	"github.com/hitoshi/userman/internal/model"
	"github.com/hitoshi/userman/internal/user"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	listFn   func(ctx context.Context, limit, offset int) ([]*model.User, error)
	getFn    func(ctx context.Context, id string) (*model.User, error)
	createFn func(ctx context.Context, username, email, password string) (*model.User, error)
	updateFn func(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error)
	deleteFn func(ctx context.Context, actorID, targetID string) error
}

func (m *mockUserService) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return []*model.User{sampleUser()}, nil
}

func (m *mockUserService) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return sampleUser(), nil
}

func (m *mockUserService) Create(ctx context.Context, username, email, password string) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, email, password)
	}
	return sampleUser(), nil
}

func (m *mockUserService) Update(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actorID, targetID, in)
	}
	return sampleUser(), nil
}

func (m *mockUserService) Delete(ctx context.Context, actorID, targetID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, targetID)
	}
	return nil
}

// mockUserRecorder はUserMetricsRecorderのモック実装。
type mockUserRecorder struct {
	userCreated int
}

func (m *mockUserRecorder) RecordUserCreated() { m.userCreated++ }

var _ UserServiceInterface = (*mockUserService)(nil)
var _ UserMetricsRecorder = (*mockUserRecorder)(nil)

const (
	testUserID  = "00000000-0000-0000-0000-000000000001"
	otherUserID = "00000000-0000-0000-0000-000000000002"
)

// --- GET /users テスト ---

func TestUserHandler_List_Success(t *testing.T) {
	var gotLimit, gotOffset int
	svc := &mockUserService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, error) {
			gotLimit = limit
			gotOffset = offset
			return []*model.User{sampleUser()}, nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users?limit=10&offset=5", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, http.StatusOK, w.Body.String())
	}
	if gotLimit != 10 || gotOffset != 5 {
		t.Errorf("(limit, offset) = (%d, %d), want (10, 5)", gotLimit, gotOffset)
	}

	var got []userResponse
	decodeJSON(t, w, &got)
	if len(got) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(got))
	}
	if got[0].Username != "johndoe" {
		t.Errorf("users[0].username = %q, want %q", got[0].Username, "johndoe")
	}
}

func TestUserHandler_List_WithoutQuery_PassesZeroValues(t *testing.T) {
	var gotLimit, gotOffset int
	svc := &mockUserService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, error) {
			gotLimit = limit
			gotOffset = offset
			return nil, nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	// デフォルト値の適用はサービス層の責務
	if gotLimit != 0 || gotOffset != 0 {
		t.Errorf("(limit, offset) = (%d, %d), want (0, 0)", gotLimit, gotOffset)
	}
}

func TestUserHandler_List_EmptyResult_ReturnsEmptyArray(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, error) {
			return []*model.User{}, nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	body := strings.TrimSpace(w.Body.String())
	if body != "[]" {
		t.Errorf("body = %q, want %q", body, "[]")
	}
}

func TestUserHandler_List_InvalidLimit_ReturnsBadRequest(t *testing.T) {
	listCalled := false
	svc := &mockUserService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, error) {
			listCalled = true
			return nil, nil
		},
	}
	h := NewUserHandler(svc, nil)

	for _, query := range []string{"?limit=abc", "?limit=-1", "?offset=xyz", "?offset=-3"} {
		req := httptest.NewRequest(http.MethodGet, "/users"+query, nil)
		w := httptest.NewRecorder()

		h.List(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", query, w.Result().StatusCode, http.StatusBadRequest)
		}
	}
	if listCalled {
		t.Error("service should not be called for invalid pagination values")
	}
}

func TestUserHandler_List_ServiceError_ReturnsInternalError(t *testing.T) {
	svc := &mockUserService{
		listFn: func(ctx context.Context, limit, offset int) ([]*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- GET /users/{id} テスト ---

func TestUserHandler_Get_Success(t *testing.T) {
	var gotID string
	svc := &mockUserService{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			gotID = id
			return sampleUser(), nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/"+testUserID, nil)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if gotID != testUserID {
		t.Errorf("id = %q, want %q", gotID, testUserID)
	}

	var got userResponse
	decodeJSON(t, w, &got)
	if got.ID != testUserID {
		t.Errorf("id = %q, want %q", got.ID, testUserID)
	}
	if got.Email != "john@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "john@example.com")
	}
	if strings.Contains(w.Body.String(), "$2a$") {
		t.Errorf("response body should not contain a password hash: %s", w.Body.String())
	}
}

func TestUserHandler_Get_InvalidUUID_ReturnsBadRequest(t *testing.T) {
	getCalled := false
	svc := &mockUserService{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			getCalled = true
			return sampleUser(), nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/not-a-uuid", nil)
	req = withChiURLParam(req, "id", "not-a-uuid")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if e := decodeAPIError(t, w); e.Code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", e.Code, model.ErrCodeValidation)
	}
	if getCalled {
		t.Error("service should not be called for an invalid id")
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/"+testUserID, nil)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if e := decodeAPIError(t, w); e.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", e.Code, model.ErrCodeUserNotFound)
	}
}

// --- POST /users テスト ---

func TestUserHandler_Create_Success(t *testing.T) {
	var gotUsername, gotEmail, gotPassword string
	svc := &mockUserService{
		createFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			gotUsername = username
			gotEmail = email
			gotPassword = password
			return sampleUser(), nil
		},
	}
	rec := &mockUserRecorder{}
	h := NewUserHandler(svc, rec)

	body := `{"username":"johndoe","email":"john@example.com","password":"securePassword123"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, http.StatusCreated, w.Body.String())
	}
	if gotUsername != "johndoe" || gotEmail != "john@example.com" || gotPassword != "securePassword123" {
		t.Errorf("service received (%q, %q, %q)", gotUsername, gotEmail, gotPassword)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("response body should not contain password: %s", w.Body.String())
	}
	if rec.userCreated != 1 {
		t.Errorf("userCreated = %d, want 1", rec.userCreated)
	}
}

func TestUserHandler_Create_ShortPassword_ReturnsValidationError(t *testing.T) {
	createCalled := false
	svc := &mockUserService{
		createFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			createCalled = true
			return sampleUser(), nil
		},
	}
	h := NewUserHandler(svc, nil)

	body := `{"username":"johndoe","email":"john@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if createCalled {
		t.Error("service should not be called when validation fails")
	}
}

func TestUserHandler_Create_DuplicateEmail_ReturnsConflict(t *testing.T) {
	svc := &mockUserService{
		createFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	rec := &mockUserRecorder{}
	h := NewUserHandler(svc, rec)

	body := `{"username":"johndoe","email":"john@example.com","password":"securePassword123"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if e := decodeAPIError(t, w); e.Code != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", e.Code, model.ErrCodeEmailTaken)
	}
	if rec.userCreated != 0 {
		t.Errorf("userCreated = %d, want 0", rec.userCreated)
	}
}

// --- PUT /users/{id} テスト ---

func TestUserHandler_Update_PartialEmail_Success(t *testing.T) {
	var gotActorID, gotTargetID string
	var gotInput user.UpdateInput
	svc := &mockUserService{
		updateFn: func(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error) {
			gotActorID = actorID
			gotTargetID = targetID
			gotInput = in
			u := sampleUser()
			u.Email = "new@example.com"
			return u, nil
		},
	}
	h := NewUserHandler(svc, nil)

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/users/"+testUserID, strings.NewReader(body))
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, http.StatusOK, w.Body.String())
	}
	if gotActorID != testUserID || gotTargetID != testUserID {
		t.Errorf("(actorID, targetID) = (%q, %q), want (%q, %q)", gotActorID, gotTargetID, testUserID, testUserID)
	}
	if gotInput.Email == nil || *gotInput.Email != "new@example.com" {
		t.Errorf("input.Email = %v, want new@example.com", gotInput.Email)
	}
	// 指定しなかったフィールドはnilのまま渡ること
	if gotInput.Username != nil || gotInput.Password != nil || gotInput.IsActive != nil {
		t.Errorf("unspecified fields should stay nil: %+v", gotInput)
	}

	var got userResponse
	decodeJSON(t, w, &got)
	if got.Email != "new@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "new@example.com")
	}
}

func TestUserHandler_Update_Deactivate_Success(t *testing.T) {
	var gotInput user.UpdateInput
	svc := &mockUserService{
		updateFn: func(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error) {
			gotInput = in
			u := sampleUser()
			u.IsActive = false
			return u, nil
		},
	}
	h := NewUserHandler(svc, nil)

	body := `{"is_active":false}`
	req := httptest.NewRequest(http.MethodPut, "/users/"+testUserID, strings.NewReader(body))
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotInput.IsActive == nil || *gotInput.IsActive != false {
		t.Errorf("input.IsActive = %v, want false", gotInput.IsActive)
	}

	var got userResponse
	decodeJSON(t, w, &got)
	if got.IsActive {
		t.Error("is_active should be false")
	}
}

func TestUserHandler_Update_EmptyBody_ReturnsValidationError(t *testing.T) {
	updateCalled := false
	svc := &mockUserService{
		updateFn: func(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error) {
			updateCalled = true
			return sampleUser(), nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/users/"+testUserID, strings.NewReader(`{}`))
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if e := decodeAPIError(t, w); e.Code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", e.Code, model.ErrCodeValidation)
	}
	if updateCalled {
		t.Error("service should not be called for an empty update")
	}
}

func TestUserHandler_Update_ShortPassword_ReturnsValidationError(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, nil)

	body := `{"password":"short"}`
	req := httptest.NewRequest(http.MethodPut, "/users/"+testUserID, strings.NewReader(body))
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestUserHandler_Update_OtherUser_ReturnsForbidden(t *testing.T) {
	svc := &mockUserService{
		updateFn: func(ctx context.Context, actorID, targetID string, in user.UpdateInput) (*model.User, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewUserHandler(svc, nil)

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/users/"+otherUserID, strings.NewReader(body))
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", otherUserID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if e := decodeAPIError(t, w); e.Code != model.ErrCodeForbidden {
		t.Errorf("code = %q, want %q", e.Code, model.ErrCodeForbidden)
	}
}

func TestUserHandler_Update_InvalidUUID_ReturnsBadRequest(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, nil)

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/users/abc", strings.NewReader(body))
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestUserHandler_Update_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, nil)

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/users/"+testUserID, strings.NewReader(body))
	// ユーザーIDを注入しない
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- DELETE /users/{id} テスト ---

func TestUserHandler_Delete_Success(t *testing.T) {
	var gotActorID, gotTargetID string
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, actorID, targetID string) error {
			gotActorID = actorID
			gotTargetID = targetID
			return nil
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+testUserID, nil)
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if gotActorID != testUserID || gotTargetID != testUserID {
		t.Errorf("(actorID, targetID) = (%q, %q), want (%q, %q)", gotActorID, gotTargetID, testUserID, testUserID)
	}
}

func TestUserHandler_Delete_OtherUser_ReturnsForbidden(t *testing.T) {
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, actorID, targetID string) error {
			return model.NewForbiddenError()
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+otherUserID, nil)
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", otherUserID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestUserHandler_Delete_NotFound(t *testing.T) {
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, actorID, targetID string) error {
			return model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+testUserID, nil)
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestUserHandler_Delete_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+testUserID, nil)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestUserHandler_Delete_InternalError(t *testing.T) {
	svc := &mockUserService{
		deleteFn: func(ctx context.Context, actorID, targetID string) error {
			return errors.New("transaction failed")
		},
	}
	h := NewUserHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+testUserID, nil)
	req = withUserID(req, testUserID)
	req = withChiURLParam(req, "id", testUserID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- ヘルパー関数 ---

// sampleUser はテスト用のユーザーを返す。
func sampleUser() *model.User {
	now := time.Date(2026, 1, 9, 11, 45, 32, 0, time.UTC)
	return &model.User{
		ID:           testUserID,
		Username:     "johndoe",
		Email:        "john@example.com",
		PasswordHash: "$2a$10$dummyhashdummyhashdummyha",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// sampleTokenPair はテスト用のトークンペアを返す。
func sampleTokenPair() *auth.TokenPair {
	return &auth.TokenPair{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		ExpiresIn:    86400,
	}
}

// withUserID は認証ミドルウェアを経由せずにユーザーIDをリクエストに注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はchiのURLパラメータをリクエストに注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeJSON はレスポンスボディをJSONとして復元するヘルパー。
// ボディを消費しないため、呼び出し後もw.Bodyを検査できる。
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body: %v (body: %s)", err, w.Body.String())
	}
}

// decodeAPIError はレスポンスボディから統一エラーフォーマットを復元するヘルパー。
func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var e apiErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("failed to decode error response: %v (body: %s)", err, w.Body.String())
	}
	return e
}
