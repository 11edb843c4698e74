package session

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/applyman/internal/model"
)

func testIssuer() *Issuer {
	return NewIssuer(IssuerConfig{
		Secret: []byte("test-session-secret-32bytes-long!"),
		MaxAge: 3600,
	})
}

func testPerson() *model.Person {
	return &model.Person{
		ID:       "person-123",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		RoleID:   model.RoleApplicant,
	}
}

func TestIssuer_Issue_SetsHTTPOnlyCookie(t *testing.T) {
	issuer := testIssuer()
	w := httptest.NewRecorder()

	if err := issuer.Issue(w, testPerson()); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies) = %d, want 1", len(cookies))
	}

	c := cookies[0]
	if c.Name != CookieName {
		t.Errorf("cookie name = %q, want %q", c.Name, CookieName)
	}
	if c.Value == "" {
		t.Error("cookie value should not be empty")
	}
	if !c.HttpOnly {
		t.Error("cookie must be HttpOnly")
	}
	if c.SameSite != 2 { // http.SameSiteLaxMode
		t.Errorf("cookie SameSite = %v, want Lax", c.SameSite)
	}
	if c.MaxAge != 3600 {
		t.Errorf("cookie MaxAge = %d, want 3600", c.MaxAge)
	}
}

func TestIssuer_IssueAndVerify_RoundTrip(t *testing.T) {
	issuer := testIssuer()
	w := httptest.NewRecorder()

	if err := issuer.Issue(w, testPerson()); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	token := w.Result().Cookies()[0].Value
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if claims.PersonID != "person-123" {
		t.Errorf("PersonID = %q, want %q", claims.PersonID, "person-123")
	}
	if claims.RoleID != int64(model.RoleApplicant) {
		t.Errorf("RoleID = %d, want %d", claims.RoleID, int64(model.RoleApplicant))
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp claims to be set")
	}
}

func TestIssuer_Issue_TokenDoesNotContainSecrets(t *testing.T) {
	issuer := testIssuer()
	w := httptest.NewRecorder()

	person := testPerson()
	person.PasswordHash = "$2a$10$secretbcrypthashvalue"

	if err := issuer.Issue(w, person); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// JWTのペイロードはbase64urlエンコードのため、平文でハッシュが現れないこと
	token := w.Result().Cookies()[0].Value
	if strings.Contains(token, "secretbcrypthash") {
		t.Error("session token must not embed the password hash")
	}
}

func TestIssuer_Verify_WrongSecret_ReturnsError(t *testing.T) {
	issuer := testIssuer()
	w := httptest.NewRecorder()

	if err := issuer.Issue(w, testPerson()); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	token := w.Result().Cookies()[0].Value

	other := NewIssuer(IssuerConfig{Secret: []byte("another-secret-entirely!!!!!!!!!"), MaxAge: 3600})
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected error for token signed with different secret, got nil")
	}
}

func TestIssuer_Verify_ExpiredToken_ReturnsError(t *testing.T) {
	issuer := testIssuer()

	// 有効期限切れのトークンを直接構築する
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		PersonID: "person-123",
		RoleID:   2,
	})
	signed, err := token.SignedString([]byte("test-session-secret-32bytes-long!"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}

	if _, err := issuer.Verify(signed); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestIssuer_Verify_UnexpectedAlgorithm_ReturnsError(t *testing.T) {
	issuer := testIssuer()

	// alg=noneのトークンは拒否されること
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{PersonID: "person-123"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}

	if _, err := issuer.Verify(signed); err == nil {
		t.Fatal("expected error for alg=none token, got nil")
	}
}

func TestIssuer_Verify_GarbageToken_ReturnsError(t *testing.T) {
	issuer := testIssuer()
	if _, err := issuer.Verify("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}

func TestIssuer_Clear_ExpiresCookie(t *testing.T) {
	issuer := testIssuer()
	w := httptest.NewRecorder()

	issuer.Clear(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies) = %d, want 1", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("cookie value = %q, want empty", cookies[0].Value)
	}
}
