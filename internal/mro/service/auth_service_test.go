package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/middleware"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/gin-gonic/gin"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*entity.User)}
}

func (m *memoryUsers) FindByID(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByName(ctx context.Context, name string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) ExistsByNameOrEmail(ctx context.Context, name, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == name || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) Create(ctx context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]string)}
}

func (m *memorySessions) Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = userID
	return nil
}

func (m *memorySessions) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *memorySessions) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok, nil
}

const testSecret = "auth-service-test-secret"

func newTestAuthService() *AuthService {
	return NewAuthService(newMemoryUsers(), newMemorySessions(),
		config.JWTConfig{Secret: testSecret, AccessTokenExpire: time.Hour, Issuer: "mro-system"},
		config.AuthConfig{SessionTTL: time.Hour},
	)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{Name: "alice", Email: "Alice@Example.com", Password: "secret1", IsMaster: true})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" || user.PasswordHash == "secret1" {
		t.Fatalf("expected normalized email and hashed password, got %+v", user)
	}

	if _, err := svc.Register(ctx, &RegisterRequest{Name: "alice", Email: "other@example.com", Password: "secret1"}); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}

	if _, err := svc.Login(ctx, &LoginRequest{Name: "alice", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Name: "bob", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	res, err := svc.Login(ctx, &LoginRequest{Name: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.ID != user.ID {
		t.Fatalf("unexpected login result %+v", res)
	}
}

func TestAuthTokenRejectedAfterLogout(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, &RegisterRequest{Name: "carol", Email: "carol@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := svc.Login(ctx, &LoginRequest{Name: "carol", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.JWTAuth(testSecret, middleware.AuthOptions{Sessions: svc}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.ContextSessionID))
	})
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+res.Token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", w.Code)
	}
	sessionID := w.Body.String()
	if sessionID == "" {
		t.Fatalf("expected session id in context")
	}

	if err := svc.Logout(ctx, sessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if w := call(); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestAuthGetCurrentUser(t *testing.T) {
	svc := newTestAuthService()
	if _, err := svc.GetCurrentUser(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
