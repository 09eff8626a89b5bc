package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/platform/ctxutil"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

// Cookie names shared by the auth middleware and the auth handler.
const (
	AccessCookie  = "oc_access"
	RefreshCookie = "oc_refresh"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(baseLog *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		log:         baseLog.With("middleware", "AuthMiddleware"),
		authService: authService,
	}
}

// RequireAuth resolves the caller from the access cookie, an Authorization
// bearer header, or a `token` query param (EventSource cannot set headers).
// On success the request context carries ctxutil.RequestData.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.ErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid token")
			c.Abort()
			return
		}
		rd, err := am.authService.ParseAccessToken(tokenString)
		if err != nil || rd == nil || rd.UserID == uuid.Nil {
			response.ErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid token")
			c.Abort()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole gates a route group to the named roles. Runs after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToUpper(strings.TrimSpace(r))] = struct{}{}
	}
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			response.ErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid token")
			c.Abort()
			return
		}
		if _, ok := allowed[strings.ToUpper(rd.Role)]; !ok {
			response.ErrorCode(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if qToken := strings.TrimSpace(c.Query("token")); qToken != "" {
		return qToken
	}
	return ""
}
