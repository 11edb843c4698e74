// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返せる情報のみを保持し、内部エラーの詳細は含めない。
// Sourceはエラーを発生させた協調コンポーネント（credential_store、mail、
// challenge_store）を識別する来歴タグで、システム障害の場合のみ設定される。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, verification, validation, system
	Source   string // 来歴タグ（協調コンポーネント名、任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthenticationFailed  = "AUTHENTICATION_FAILED"
	ErrCodeVerificationMismatch  = "VERIFICATION_MISMATCH"
	ErrCodeMalformedRequest      = "MALFORMED_REQUEST"
	ErrCodeCredentialStoreFailed = "CREDENTIAL_STORE_FAILED"
	ErrCodeMailDispatchFailed    = "MAIL_DISPATCH_FAILED"
	ErrCodeChallengeStoreFailed  = "CHALLENGE_STORE_FAILED"
)

// NewAuthenticationFailedError は認証失敗エラーを生成する。
// ユーザー名とパスワードのどちらが誤っていたかは開示しない。
func NewAuthenticationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationFailed,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
	}
}

// NewVerificationMismatchError は検証コード不一致エラーを生成する。
// 正しいコードや残り有効期限などの詳細は決して含めない。
func NewVerificationMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeVerificationMismatch,
		Message:  "検証コードが一致しないか、有効期限が切れています。",
		Category: "verification",
	}
}

// NewMalformedRequestError は必須フィールド欠落などの不正リクエストエラーを生成する。
func NewMalformedRequestError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", detail),
		Category: "validation",
	}
}

// NewCredentialStoreError は永続化層の障害エラーを生成する。
// 元のエラーはログにのみ記録し、クライアントには汎用メッセージを返す。
func NewCredentialStoreError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialStoreFailed,
		Message:  "アカウント情報の処理に失敗しました。",
		Category: "system",
		Source:   "credential_store",
	}
}

// NewMailDispatchError はメール送信の障害エラーを生成する。
func NewMailDispatchError() *APIError {
	return &APIError{
		Code:     ErrCodeMailDispatchFailed,
		Message:  "検証コードの送信に失敗しました。",
		Category: "system",
		Source:   "mail",
	}
}

// NewChallengeStoreError は検証チャレンジストアの障害エラーを生成する。
func NewChallengeStoreError() *APIError {
	return &APIError{
		Code:     ErrCodeChallengeStoreFailed,
		Message:  "検証コードの処理に失敗しました。",
		Category: "system",
		Source:   "challenge_store",
	}
}
