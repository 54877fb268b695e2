package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/config"
)

func newEnabledService() *Service {
	return New(config.AuthConfig{
		Enable:        true,
		Secret:        "test-secret",
		ExpireMinutes: 60,
		Users: []config.UserConfig{
			{Username: "admin", Password: "secret"},
		},
	})
}

func TestLoginVerifyRoundTrip(t *testing.T) {
	svc := newEnabledService()

	tok, err := svc.Login("admin", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.Type != "Bearer" || tok.Value == "" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	identity, err := svc.Verify(tok.Value)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity != "admin" {
		t.Fatalf("identity = %q, want admin", identity)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newEnabledService()
	cases := []struct{ user, pass string }{
		{"admin", "wrong"},
		{"nobody", "secret"},
		{"", ""},
	}
	for _, tc := range cases {
		if _, err := svc.Login(tc.user, tc.pass); err != ErrInvalidCredentials {
			t.Errorf("Login(%q, %q) err = %v, want ErrInvalidCredentials", tc.user, tc.pass, err)
		}
	}
}

func TestLoginDisabled(t *testing.T) {
	svc := New(config.AuthConfig{Enable: false})
	if _, err := svc.Login("admin", "secret"); err != ErrAuthDisabled {
		t.Fatalf("err = %v, want ErrAuthDisabled", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer := newEnabledService()
	tok, err := issuer.Login("admin", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := New(config.AuthConfig{
		Enable:        true,
		Secret:        "different-secret",
		ExpireMinutes: 60,
	})
	if _, err := other.Verify(tok.Value); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newEnabledService()
	if _, err := svc.Verify("not-a-token"); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func middlewareRig(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(svc.GinAuth())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, Identity(c))
	})
	return r
}

func TestGinAuthDisabledPassesAnonymous(t *testing.T) {
	r := middlewareRig(New(config.AuthConfig{Enable: false}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != Anonymous {
		t.Fatalf("identity = %q, want %q", w.Body.String(), Anonymous)
	}
}

func TestGinAuthEnabled(t *testing.T) {
	svc := newEnabledService()
	r := middlewareRig(svc)

	// No header.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status = %d, want 401", w.Code)
	}

	// Wrong scheme.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic YWRtaW46c2VjcmV0")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("basic scheme: status = %d, want 401", w.Code)
	}

	// Invalid token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", w.Code)
	}

	// Valid token resolves the subject.
	tok, err := svc.Login("admin", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", w.Code)
	}
	if w.Body.String() != "admin" {
		t.Fatalf("identity = %q, want admin", w.Body.String())
	}
}
