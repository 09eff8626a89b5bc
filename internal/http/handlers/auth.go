package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/optocase-backend/internal/http/middleware"
	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/envutil"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(baseLog *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         baseLog.With("handler", "AuthHandler"),
		authService: authService,
	}
}

// POST /auth/register
func (ah *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, pair, err := ah.authService.Register(dbc, req)
	if err != nil {
		response.Error(c, ah.log, err)
		return
	}
	ah.setTokenCookies(c, pair)
	response.Created(c, gin.H{"user": user})
}

// POST /auth/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, pair, err := ah.authService.Login(dbc, req.Email, req.Password)
	if err != nil {
		response.Error(c, ah.log, err)
		return
	}
	ah.setTokenCookies(c, pair)
	response.OK(c, gin.H{"user": user})
}

// POST /auth/refresh — rotates the refresh token. Reads the cookie first and
// falls back to a JSON body for non-browser clients.
func (ah *AuthHandler) Refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		response.ErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing refresh token")
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, pair, err := ah.authService.Refresh(dbc, token)
	if err != nil {
		ah.clearTokenCookies(c)
		response.Error(c, ah.log, err)
		return
	}
	ah.setTokenCookies(c, pair)
	response.OK(c, gin.H{"user": user})
}

// POST /auth/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	token := refreshTokenFrom(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if token != "" {
		if err := ah.authService.Logout(dbc, token); err != nil {
			ah.log.Warn("logout failed", "error", err)
		}
	}
	ah.clearTokenCookies(c)
	response.OK(c, gin.H{"ok": true})
}

// GET /auth/me
func (ah *AuthHandler) Me(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, err := ah.authService.Me(dbc)
	if err != nil {
		response.Error(c, ah.log, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

func refreshTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(middleware.RefreshCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if c.Request.ContentLength > 0 && c.ShouldBindJSON(&req) == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

func (ah *AuthHandler) setTokenCookies(c *gin.Context, pair *services.TokenPair) {
	if pair == nil {
		return
	}
	domain := envutil.Str("COOKIE_DOMAIN", "")
	secure := envutil.Bool("COOKIE_SECURE", false)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, pair.AccessToken, int(pair.AccessTTL.Seconds()), "/", domain, secure, true)
	c.SetCookie(middleware.RefreshCookie, pair.RefreshToken, int(pair.RefreshTTL.Seconds()), "/", domain, secure, true)
}

func (ah *AuthHandler) clearTokenCookies(c *gin.Context) {
	domain := envutil.Str("COOKIE_DOMAIN", "")
	secure := envutil.Bool("COOKIE_SECURE", false)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", domain, secure, true)
	c.SetCookie(middleware.RefreshCookie, "", -1, "/", domain, secure, true)
}
