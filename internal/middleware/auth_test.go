package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware-test-secret"

type fakeSessions struct {
	active map[string]bool
	err    error
}

func (f *fakeSessions) SessionActive(_ context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.active[id], nil
}

func signToken(t *testing.T, secret, userID, sessionID string, isMaster bool, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := JWTClaims{
		UserID:   userID,
		Name:     "operator",
		IsMaster: isMaster,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newAuthRouter(opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", JWTAuth(testSecret, opts))
	g.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID), "is_master": c.GetBool(ContextIsMaster)})
	})
	g.GET("/admin", RequireMaster(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r *gin.Engine, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	sessions := &fakeSessions{active: map[string]bool{"sess-1": true}}
	r := newAuthRouter(AuthOptions{Sessions: sessions})

	valid := signToken(t, testSecret, "u-1", "sess-1", false, time.Hour)
	expired := signToken(t, testSecret, "u-1", "sess-1", false, -time.Minute)
	foreign := signToken(t, "other-secret", "u-1", "sess-1", false, time.Hour)
	loggedOut := signToken(t, testSecret, "u-1", "sess-gone", false, time.Hour)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: valid}) }, http.StatusOK},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, http.StatusUnauthorized},
		{"wrong secret", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreign) }, http.StatusUnauthorized},
		{"session ended", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+loggedOut) }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/me", tt.setup)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestJWTAuthSessionStoreDown(t *testing.T) {
	r := newAuthRouter(AuthOptions{Sessions: &fakeSessions{err: errors.New("redis down")}})
	token := signToken(t, testSecret, "u-1", "sess-1", false, time.Hour)

	w := doGet(r, "/me", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) })
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRequireMaster(t *testing.T) {
	r := newAuthRouter(AuthOptions{})

	user := signToken(t, testSecret, "u-1", "s", false, time.Hour)
	master := signToken(t, testSecret, "u-2", "s", true, time.Hour)

	w := doGet(r, "/admin", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+user) })
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for regular user, got %d", w.Code)
	}
	w = doGet(r, "/admin", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+master) })
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for master, got %d", w.Code)
	}
}
