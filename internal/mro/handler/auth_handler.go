package handler

import (
	"net/http"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/middleware"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/gin-gonic/gin"
)

// AuthOptions controls the session cookie written on login.
type AuthOptions struct {
	CookieName   string
	SecureCookie bool
}

// AuthHandler 认证处理器
type AuthHandler struct {
	svc  *service.AuthService
	opts AuthOptions
}

func NewAuthHandler(svc *service.AuthService, opts AuthOptions) *AuthHandler {
	if opts.CookieName == "" {
		opts.CookieName = middleware.DefaultCookieName
	}
	return &AuthHandler{svc: svc, opts: opts}
}

// Register 注册
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, user)
}

// Login 登录，返回令牌并写入会话Cookie
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, res.Token, maxAge, "/", "", h.opts.SecureCookie, true)
	Success(c, res)
}

// Logout 退出登录
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), c.GetString(middleware.ContextSessionID)); err != nil {
		handleError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, "", -1, "/", "", h.opts.SecureCookie, true)
	Success(c, nil)
}

// Me 当前用户
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, user)
}
