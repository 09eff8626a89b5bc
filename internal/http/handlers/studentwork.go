package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

type StudentWorkHandler struct {
	log         *logger.Logger
	workService services.StudentWorkService
}

func NewStudentWorkHandler(baseLog *logger.Logger, workService services.StudentWorkService) *StudentWorkHandler {
	return &StudentWorkHandler{
		log:         baseLog.With("handler", "StudentWorkHandler"),
		workService: workService,
	}
}

// PUT /case-attempts/:attemptId/notes
func (h *StudentWorkHandler) SaveNote(c *gin.Context) {
	var req struct {
		Section string `json:"section"`
		Body    string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	note, err := h.workService.SaveNote(dbc, rd.UserID, uuidParam(c, "attemptId"), req.Section, req.Body)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"note": note})
}

// GET /case-attempts/:attemptId/notes
func (h *StudentWorkHandler) ListNotes(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	notes, err := h.workService.ListNotes(dbc, rd.UserID, uuidParam(c, "attemptId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"notes": notes})
}

// PUT /case-attempts/:attemptId/interpretations
func (h *StudentWorkHandler) SaveInterpretation(c *gin.Context) {
	var req struct {
		ImagingStudyID string `json:"imagingStudyId"`
		Body           string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	studyID, err := uuid.Parse(strings.TrimSpace(req.ImagingStudyID))
	if err != nil || studyID == uuid.Nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "imagingStudyId is required")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	it, err := h.workService.SaveInterpretation(dbc, rd.UserID, uuidParam(c, "attemptId"), studyID, req.Body)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"interpretation": it})
}

// GET /case-attempts/:attemptId/interpretations
func (h *StudentWorkHandler) ListInterpretations(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.workService.ListInterpretations(dbc, rd.UserID, uuidParam(c, "attemptId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"interpretations": rows})
}
