package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/platform/ctxutil"
)

// uuidParam parses a path param, returning uuid.Nil for absent or malformed
// values. Callers decide which error that maps to.
func uuidParam(c *gin.Context, name string) uuid.UUID {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// caller returns the authenticated identity the auth middleware attached.
// Routes behind RequireAuth always have one; the nil check is for misuse.
func caller(c *gin.Context) *ctxutil.RequestData {
	return ctxutil.GetRequestData(c.Request.Context())
}
