package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/metrics"
	"github.com/Rithish-Sripaul/mro-system/internal/middleware"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByName(ctx context.Context, name string) (*entity.User, error)
	ExistsByNameOrEmail(ctx context.Context, name, email string) (bool, error)
	Create(ctx context.Context, u *entity.User) error
}

// AuthService 认证服务
type AuthService struct {
	users    userStore
	sessions SessionStore
	jwtCfg   config.JWTConfig
	authCfg  config.AuthConfig
}

func NewAuthService(users userStore, sessions SessionStore, jwtCfg config.JWTConfig, authCfg config.AuthConfig) *AuthService {
	return &AuthService{users: users, sessions: sessions, jwtCfg: jwtCfg, authCfg: authCfg}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=2,max=128"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=72"`
	IsMaster bool   `json:"is_master" form:"is_master"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Name     string `json:"name" form:"name" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResult is the signed token and the logged in user.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Register 注册用户
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*entity.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}

	exists, err := s.users.ExistsByNameOrEmail(ctx, name, email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if exists {
		return nil, ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsMaster:     req.IsMaster,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies the password, opens a session and signs a token bound to it.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.users.FindByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLogin("invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.RecordLogin("invalid")
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.New().String()
	ttl := s.authCfg.SessionTTL
	if ttl <= 0 {
		ttl = s.jwtCfg.AccessTokenExpire
	}
	if err := s.sessions.Create(ctx, sessionID, user.ID, ttl); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, expiresAt, err := s.signToken(user, sessionID, ttl)
	if err != nil {
		return nil, err
	}
	metrics.RecordLogin("success")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout 结束会话
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// GetCurrentUser 获取当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

// SessionActive lets the auth middleware check sessions through the service.
func (s *AuthService) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	return s.sessions.SessionActive(ctx, sessionID)
}

func (s *AuthService) signToken(user *entity.User, sessionID string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := middleware.JWTClaims{
		UserID:   user.ID,
		Name:     user.Name,
		IsMaster: user.IsMaster,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   user.ID,
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
