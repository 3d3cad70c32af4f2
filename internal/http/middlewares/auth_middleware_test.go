package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kharelcodes/bloghub/internal/auth"
	"github.com/kharelcodes/bloghub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f *fakeVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if f.verifyFn != nil {
		return f.verifyFn(token)
	}
	return nil, errors.New("no verifier configured")
}

func protectedRouter(v middlewares.TokenVerifier, adminOnly bool) *gin.Engine {
	r := gin.New()

	mw := middlewares.NewAuthMiddleware(v)

	chain := []gin.HandlerFunc{mw.RequireAuth()}
	if adminOnly {
		chain = append(chain, mw.RequireAdmin())
	}

	chain = append(chain, func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"userId":  id,
			"isAdmin": middlewares.IsAdminFromContext(c),
		})
	})

	r.GET("/protected", chain...)

	return r
}

func TestRequireAuth_RejectsBadTokensUniformly(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "missing_header", authHeader: ""},
		{name: "not_bearer", authHeader: "Basic abc123"},
		{name: "empty_token", authHeader: "Bearer "},
		{name: "verifier_rejects", authHeader: "Bearer bad-token"},
	}

	v := &fakeVerifier{
		verifyFn: func(token string) (*auth.Claims, error) {
			return nil, errors.New("signature invalid")
		},
	}

	r := protectedRouter(v, false)

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRequireAuth_StashesIdentity(t *testing.T) {
	v := &fakeVerifier{
		verifyFn: func(token string) (*auth.Claims, error) {
			if token != "good-token" {
				return nil, errors.New("unexpected token")
			}
			return &auth.Claims{UserID: "user-42", IsAdmin: true}, nil
		},
	}

	r := protectedRouter(v, false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	if !strings.Contains(body, "user-42") || !strings.Contains(body, "true") {
		t.Fatalf("identity not propagated, body=%s", body)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		isAdmin    bool
		wantStatus int
	}{
		{name: "admin_allowed", isAdmin: true, wantStatus: http.StatusOK},
		{name: "non_admin_forbidden", isAdmin: false, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{
				verifyFn: func(token string) (*auth.Claims, error) {
					return &auth.Claims{UserID: "user-1", IsAdmin: tt.isAdmin}, nil
				},
			}

			r := protectedRouter(v, true)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer any")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

// RequireAuth works against the real jwt manager end to end.
func TestRequireAuth_WithRealManager(t *testing.T) {
	m := auth.NewManager("integration-secret", time.Hour)

	token, err := m.GenerateToken("user-7", false)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	r := protectedRouter(m, false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	// token signed with another secret is refused
	other := auth.NewManager("other-secret", time.Hour)
	badToken, _ := other.GenerateToken("user-7", false)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+badToken)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
