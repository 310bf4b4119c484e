package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by JWTAuth
const (
	ContextRequestID = "request_id"
	ContextUserID    = "user_id"
	ContextUserName  = "user_name"
	ContextIsMaster  = "is_master"
	ContextSessionID = "session_id"
)

// DefaultCookieName is read when no Authorization header is present.
const DefaultCookieName = "mro_token"

// JWTClaims JWT claims. ID (jti) carries the session id.
type JWTClaims struct {
	UserID   string `json:"uid"`
	Name     string `json:"name"`
	IsMaster bool   `json:"is_master"`
	jwt.RegisteredClaims
}

// SessionChecker reports whether a login session is still active.
type SessionChecker interface {
	SessionActive(ctx context.Context, sessionID string) (bool, error)
}

// AuthOptions tunes JWTAuth.
type AuthOptions struct {
	// Sessions, when set, rejects tokens whose session was logged out.
	Sessions   SessionChecker
	CookieName string
}

// JWTAuth JWT认证中间件
func JWTAuth(secret string, opts AuthOptions) gin.HandlerFunc {
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString, _ = c.Cookie(cookieName)
		}
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, 40100, "Authorization is required")
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID == "" {
			abort(c, http.StatusUnauthorized, 40102, "Invalid or expired token")
			return
		}

		if opts.Sessions != nil {
			active, err := opts.Sessions.SessionActive(c.Request.Context(), claims.ID)
			if err != nil {
				abort(c, http.StatusServiceUnavailable, 50300, "Session store unavailable")
				return
			}
			if !active {
				abort(c, http.StatusUnauthorized, 40103, "Session has ended, please log in again")
				return
			}
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextIsMaster, claims.IsMaster)
		c.Set(ContextSessionID, claims.ID)
		c.Next()
	}
}

// RequireMaster 仅主账号可访问
func RequireMaster() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsMaster) {
			abort(c, http.StatusForbidden, 40300, "Master account required")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func abort(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
