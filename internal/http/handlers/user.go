package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

const maxAvatarFormBytes = 6 << 20

type UserHandler struct {
	log         *logger.Logger
	userService services.UserService
}

func NewUserHandler(baseLog *logger.Logger, userService services.UserService) *UserHandler {
	return &UserHandler{
		log:         baseLog.With("handler", "UserHandler"),
		userService: userService,
	}
}

// PUT /users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, err := h.userService.UpdateProfile(dbc, rd.UserID, req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

// POST /users/me/avatar — multipart field `file`.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarFormBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "multipart field 'file' is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	user, err := h.userService.UploadAvatar(dbc, rd.UserID, raw)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"user": user})
}

// PUT /users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.userService.ChangePassword(dbc, rd.UserID, req); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}
