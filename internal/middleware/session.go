// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/applyman/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// personIDContextKey はリクエストコンテキストに人物IDを格納するためのキー。
// roleIDContextKey は役割IDを格納するためのキー。
var (
	personIDContextKey = contextKey("person_id")
	roleIDContextKey   = contextKey("role_id")
)

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// session.Issuerの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*session.Claims, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッショントークンを読み取り、
// 署名と有効期限を検証するミドルウェアを返す。
// 認証済みの人物IDと役割IDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), personIDContextKey, claims.PersonID)
			ctx = context.WithValue(ctx, roleIDContextKey, claims.RoleID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PersonIDFromContext はリクエストコンテキストから人物IDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func PersonIDFromContext(ctx context.Context) (string, error) {
	personID, ok := ctx.Value(personIDContextKey).(string)
	if !ok || personID == "" {
		return "", fmt.Errorf("person ID not found in context")
	}
	return personID, nil
}

// RoleIDFromContext はリクエストコンテキストから役割IDを取得する。
func RoleIDFromContext(ctx context.Context) (int64, error) {
	roleID, ok := ctx.Value(roleIDContextKey).(int64)
	if !ok {
		return 0, fmt.Errorf("role ID not found in context")
	}
	return roleID, nil
}

// ContextWithPerson はコンテキストに人物IDと役割IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPerson(ctx context.Context, personID string, roleID int64) context.Context {
	ctx = context.WithValue(ctx, personIDContextKey, personID)
	return context.WithValue(ctx, roleIDContextKey, roleID)
}
