// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/hitoshi/applyman/internal/middleware"
	"github.com/hitoshi/applyman/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Login はユーザー名とパスワードで認証し、一致した人物を返す。
	Login(ctx context.Context, username, password string) (*model.Person, error)
	// RequestVerification は指定メールアドレスへ検証コードを発行・配送する。
	RequestVerification(ctx context.Context, email string) error
	// VerifyAndRegister はコードを照合し、一致した場合のみアカウントを永続化する。
	VerifyAndRegister(ctx context.Context, code string, form model.RegistrationForm) (*model.Person, error)
}

// SessionWriter はセッションCookieの発行と破棄の契約。session.Issuerが実装する。
type SessionWriter interface {
	Issue(w http.ResponseWriter, person *model.Person) error
	Clear(w http.ResponseWriter)
}

// VerificationLimiter はメールアドレス単位の検証コード発行制限の契約。
// middleware.RateLimiterが実装する。
type VerificationLimiter interface {
	AllowVerification(email string) bool
	VerificationRate() rate.Limit
}

// PersonHandler はログイン・検証コード・登録のHTTPハンドラー。
type PersonHandler struct {
	service AccountServiceInterface
	issuer  SessionWriter
	limiter VerificationLimiter
}

// NewPersonHandler はPersonHandlerを生成する。
func NewPersonHandler(service AccountServiceInterface, issuer SessionWriter, limiter VerificationLimiter) *PersonHandler {
	return &PersonHandler{
		service: service,
		issuer:  issuer,
		limiter: limiter,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sendVerificationRequest は検証コード要求リクエストのボディ。
// フロントエンドはformData.emailを送信する。フラットなemailも後方互換として受け付ける。
type sendVerificationRequest struct {
	Email    string `json:"email"`
	FormData struct {
		Email string `json:"email"`
	} `json:"formData"`
}

// targetEmail はformData.emailを優先し、未指定ならフラットなemailを返す。
func (req sendVerificationRequest) targetEmail() string {
	if req.FormData.Email != "" {
		return req.FormData.Email
	}
	return req.Email
}

// verifyVerificationCodeRequest はコード照合付き登録リクエストのボディ。
type verifyVerificationCodeRequest struct {
	VerificationCode string                 `json:"verificationCode"`
	FormData         model.RegistrationForm `json:"formData"`
}

// personResponse はログイン済み人物のAPIレスポンス。
type personResponse struct {
	Name                string `json:"name"`
	ID                  string `json:"id"`
	ApplicationStatusID *int64 `json:"application_status_id"`
	RoleID              int64  `json:"role_id"`
	PersonMail          string `json:"personMail"`
	Role                string `json:"role"`
}

// messageResponse はメッセージのみのAPIレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// verifyResponse はコード照合付き登録のAPIレスポンス。
type verifyResponse struct {
	Message  string         `json:"message"`
	Response personResponse `json:"response"`
}

func toPersonResponse(person *model.Person) personResponse {
	return personResponse{
		Name:                person.FullName(),
		ID:                  person.ID,
		ApplicationStatusID: person.ApplicationStatusID,
		RoleID:              int64(person.RoleID),
		PersonMail:          person.Email,
		Role:                person.RoleID.Name(),
	}
}

// Login はユーザー名とパスワードの認証を処理する。
// POST /person/login
// 認証に成功するとHTTP Only Cookieでセッショントークンを発行する。
// 認証失敗はCookieを設定せず、原因を特定できない401を返す。
func (h *PersonHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	person, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeAuthenticationFailed {
			// 認証失敗の詳細を漏らさないプレーンな401
			http.Error(w, "ユーザー名またはパスワードが正しくありません", http.StatusUnauthorized)
			return
		}
		handleServiceError(w, err)
		return
	}

	if err := h.issuer.Issue(w, person); err != nil {
		slog.Error("failed to issue session token", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "内部エラーが発生しました。",
			Category: "system",
		})
		return
	}

	writeJSON(w, http.StatusOK, toPersonResponse(person))
}

// SendVerification は検証コードの発行とメール配送を処理する。
// POST /person/sendVerification
// 同一メールアドレスへの再要求は前のコードを無効化し、新しいコードのみ有効となる。
func (h *PersonHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req sendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	email := req.targetEmail()

	// コード発行の制限キーはボディのメールアドレスであるため、ここで判定する
	if email != "" && !h.limiter.AllowVerification(email) {
		middleware.WriteRateLimitResponse(w, h.limiter.VerificationRate())
		return
	}

	if err := h.service.RequestVerification(r.Context(), email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "検証コードを送信しました",
	})
}

// VerifyVerificationCode はコード照合と登録の確定を処理する。
// POST /person/verifyVerificationCode
// コードが一致した場合のみアカウントが永続化され、コードは消費される。
func (h *PersonHandler) VerifyVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req verifyVerificationCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	person, err := h.service.VerifyAndRegister(r.Context(), req.VerificationCode, req.FormData)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Message:  "アカウント登録が完了しました",
		Response: toPersonResponse(person),
	})
}

// Logout はセッションCookieを破棄する。
// POST /person/logout
// トークンはステートレスであるため、サーバー側の状態変更はCookie破棄のみ。
func (h *PersonHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.issuer.Clear(w)
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "ログアウトしました",
	})
}

// Me は認証済みセッションの人物情報を返す。
// GET /person/me
// セッションミドルウェアを通過したリクエストでのみ到達する。
func (h *PersonHandler) Me(w http.ResponseWriter, r *http.Request) {
	personID, err := middleware.PersonIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	roleID, err := middleware.RoleIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      personID,
		"role_id": roleID,
		"role":    model.RoleID(roleID).Name(),
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Source   string `json:"source,omitempty"`
}

// writeAPIErrorResponse はAPIErrorを統一フォーマットで書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Source:   apiErr.Source,
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
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case model.ErrCodeVerificationMismatch:
		return http.StatusBadRequest
	case model.ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case model.ErrCodeMailDispatchFailed:
		return http.StatusBadGateway
	case model.ErrCodeCredentialStoreFailed, model.ErrCodeChallengeStoreFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
