package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

type AttemptHandler struct {
	log            *logger.Logger
	attemptService services.AttemptService
}

func NewAttemptHandler(baseLog *logger.Logger, attemptService services.AttemptService) *AttemptHandler {
	return &AttemptHandler{
		log:            baseLog.With("handler", "AttemptHandler"),
		attemptService: attemptService,
	}
}

// Ensure returns the caller's attempt for a case, creating it on first
// touch. POST /case-attempts/ensure
func (h *AttemptHandler) Ensure(c *gin.Context) {
	var req struct {
		CaseID   string `json:"caseId"`
		LastPage string `json:"lastPage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	caseID, err := uuid.Parse(strings.TrimSpace(req.CaseID))
	if err != nil || caseID == uuid.Nil {
		response.ErrorCode(c, http.StatusBadRequest, "MISSING_CASE_ID", "caseId is required")
		return
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	attempt, err := h.attemptService.Ensure(dbc, rd.UserID, caseID, req.LastPage)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"attempt": attempt})
}

// GetByCase reads the caller's attempt for a case without creating one.
// GET /case-attempts/by-case/:caseId
func (h *AttemptHandler) GetByCase(c *gin.Context) {
	caseID := uuidParam(c, "caseId")
	if caseID == uuid.Nil {
		response.ErrorCode(c, http.StatusBadRequest, "MISSING_CASE_ID", "caseId is required")
		return
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	attempt, err := h.attemptService.GuardByCase(dbc, rd.UserID, caseID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	// attempt is nil when the user has not started the case; the client
	// treats that as "show the start screen".
	response.OK(c, gin.H{"attempt": attempt})
}

// Save overwrites one section payload. PUT /case-attempts/:attemptId/save
func (h *AttemptHandler) Save(c *gin.Context) {
	attemptID := uuidParam(c, "attemptId")
	if attemptID == uuid.Nil {
		response.ErrorCode(c, http.StatusNotFound, "NOT_FOUND", "attempt not found")
		return
	}

	var req struct {
		Section  string          `json:"section"`
		Data     json.RawMessage `json:"data"`
		LastPage string          `json:"lastPage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.attemptService.Save(dbc, rd.UserID, attemptID, req.Section, req.Data, req.LastPage); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// Complete is the one-way door. POST /case-attempts/:attemptId/complete
func (h *AttemptHandler) Complete(c *gin.Context) {
	attemptID := uuidParam(c, "attemptId")
	if attemptID == uuid.Nil {
		response.ErrorCode(c, http.StatusNotFound, "NOT_FOUND", "attempt not found")
		return
	}

	var req struct {
		PDFURL string `json:"pdfUrl"`
	}
	// Body is optional on complete.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	_, already, err := h.attemptService.Complete(dbc, rd.UserID, attemptID, req.PDFURL)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	if already {
		response.OK(c, gin.H{"ok": true, "alreadyCompleted": true})
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// MyProgress lists the caller's attempts, in-progress first.
// GET /my-progress
func (h *AttemptHandler) MyProgress(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	attempts, err := h.attemptService.ListForUser(dbc, rd.UserID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"attempts": attempts})
}

// CaseProgress is the instructor roster for one case.
// GET /cases/:caseId/progress
func (h *AttemptHandler) CaseProgress(c *gin.Context) {
	caseID := uuidParam(c, "caseId")
	if caseID == uuid.Nil {
		response.ErrorCode(c, http.StatusBadRequest, "MISSING_CASE_ID", "caseId is required")
		return
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.attemptService.ProgressByCase(dbc, rd.UserID, rd.Role, caseID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"progress": rows})
}
