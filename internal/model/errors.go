// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, user, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidUserIDError はユーザーIDの形式が不正な場合のエラーを生成する。
func NewInvalidUserIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("ユーザーIDの形式が不正です: %s", id),
		Category: "validation",
		Action:   "UUID形式のユーザーIDを指定してください。",
	}
}

// NewUsernameTakenError はユーザー名が重複している場合のエラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "user",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailTakenError はメールアドレスが重複している場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "user",
		Action:   "別のメールアドレスを指定するか、既存アカウントでログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "user",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewInvalidCredentialsError は認証情報が一致しない場合のエラーを生成する。
// ユーザー名の存在有無を漏らさないよう、原因を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークンが無効な場合のエラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUnauthorizedError は認証されていないリクエストに対するエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "Authorizationヘッダーに有効なアクセストークンを指定してください。",
	}
}

// NewForbiddenError は権限のない操作に対するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分のアカウントに対してのみ実行できます。",
	}
}
