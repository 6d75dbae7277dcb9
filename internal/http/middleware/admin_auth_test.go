package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func serveAdmin(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	subject := ""
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = AdminSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, subject
}

func TestAdminJWTRejects(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
	}{
		{"disabled", "", "Bearer " + signAdminToken(t, jwt.SigningMethodHS256, "secret", time.Minute)},
		{"missing header", "secret", ""},
		{"not bearer", "secret", "Basic abc"},
		{"wrong secret", "secret", "Bearer " + signAdminToken(t, jwt.SigningMethodHS256, "wrong", time.Minute)},
		{"expired", "secret", "Bearer " + signAdminToken(t, jwt.SigningMethodHS256, "secret", -time.Minute)},
		{"other hmac alg", "secret", "Bearer " + signAdminToken(t, jwt.SigningMethodHS512, "secret", time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := serveAdmin(t, tc.secret, tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected json error, got %q", ct)
			}
		})
	}
}

func TestAdminJWTAcceptsValidToken(t *testing.T) {
	rec, subject := serveAdmin(t, "secret", "Bearer "+signAdminToken(t, jwt.SigningMethodHS256, "secret", time.Minute))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if subject != "ops@wpchat" {
		t.Fatalf("expected subject in context, got %q", subject)
	}
}

func signAdminToken(t *testing.T, method jwt.SigningMethod, secret string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "ops@wpchat",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
