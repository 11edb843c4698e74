// Package session は認証済み人物へのセッションCookie発行と検証を提供する。
// セッションはサーバー側に永続化されない署名付きJWTであり、
// person_idとrole_idのみを含む。パスワードハッシュ等の秘密情報は埋め込まない。
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/applyman/internal/model"
)

// CookieName はセッショントークンを保持するCookieの名前。
const CookieName = "session_token"

// Claims はセッショントークンの内容。
// 標準クレームに加えて、人物の再識別に必要な最小限の属性のみを持つ。
type Claims struct {
	jwt.RegisteredClaims
	PersonID string `json:"person_id"`
	RoleID   int64  `json:"role_id"`
}

// IssuerConfig はセッション発行の設定。
type IssuerConfig struct {
	Secret       []byte
	MaxAge       int // Cookie有効期間（秒）
	CookieSecure bool
	CookieDomain string
}

// Issuer は署名付きセッショントークンの発行・検証を行う。
type Issuer struct {
	config IssuerConfig
}

// NewIssuer はIssuerを生成する。
func NewIssuer(config IssuerConfig) *Issuer {
	return &Issuer{config: config}
}

// Issue は認証済み人物のセッショントークンを署名し、
// HTTP Only・SameSite=LaxのCookieとしてレスポンスに付与する。
// 失敗は署名エラーの場合のみで、呼び出し側は500として扱う。
func (i *Issuer) Issue(w http.ResponseWriter, person *model.Person) error {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(i.config.MaxAge) * time.Second)),
		},
		PersonID: person.ID,
		RoleID:   int64(person.RoleID),
	})

	signed, err := token.SignedString(i.config.Secret)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   i.config.CookieDomain,
		MaxAge:   i.config.MaxAge,
		HttpOnly: true,
		Secure:   i.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Verify はセッショントークンを検証し、クレームを返す。
// 署名不正・期限切れ・アルゴリズム不一致はエラーになる。
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	return claims, nil
}

// Clear はセッションCookieを失効させる。ログアウトで使用する。
func (i *Issuer) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   i.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
