package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/services"
)

// maxImagingFormBytes caps the multipart read before the service's own
// limit; slightly above it so oversize uploads get the typed error instead
// of a connection reset.
const maxImagingFormBytes = 21 << 20

type CaseHandler struct {
	log            *logger.Logger
	caseService    services.CaseService
	imagingService services.ImagingService
}

func NewCaseHandler(baseLog *logger.Logger, caseService services.CaseService, imagingService services.ImagingService) *CaseHandler {
	return &CaseHandler{
		log:            baseLog.With("handler", "CaseHandler"),
		caseService:    caseService,
		imagingService: imagingService,
	}
}

// POST /cases
func (h *CaseHandler) Create(c *gin.Context) {
	var req services.CreateCaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.Create(dbc, rd.UserID, req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Created(c, gin.H{"case": row})
}

// GET /cases?status=DRAFT
func (h *CaseHandler) List(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.caseService.ListOwned(dbc, rd.UserID, c.Query("status"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"cases": rows})
}

// GET /cases/catalog
func (h *CaseHandler) Catalog(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	entries, err := h.caseService.Catalog(dbc)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"cases": entries})
}

// GET /cases/:caseId
func (h *CaseHandler) Get(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.Get(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"case": row})
}

// GET /cases/:caseId/workbook
func (h *CaseHandler) Workbook(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	wb, err := h.caseService.Workbook(dbc, rd.UserID, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"workbook": wb})
}

// PUT /cases/:caseId
func (h *CaseHandler) Update(c *gin.Context) {
	var req services.UpdateCaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.Update(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"case": row})
}

// DELETE /cases/:caseId
func (h *CaseHandler) Delete(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.caseService.Delete(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId")); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// POST /cases/:caseId/publish
func (h *CaseHandler) Publish(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.Publish(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"case": row})
}

// POST /cases/:caseId/unpublish
func (h *CaseHandler) Unpublish(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.Unpublish(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"case": row})
}

// POST /cases/:caseId/archive
func (h *CaseHandler) Archive(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.Archive(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"case": row})
}

// PUT /cases/:caseId/patient
func (h *CaseHandler) UpsertPatient(c *gin.Context) {
	var req services.PatientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.UpsertPatient(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"patient": row})
}

// PUT /cases/:caseId/appointment
func (h *CaseHandler) UpsertAppointment(c *gin.Context) {
	var req services.AppointmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.UpsertAppointment(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"appointment": row})
}

// PUT /cases/:caseId/history
func (h *CaseHandler) UpsertHistory(c *gin.Context) {
	var req services.HistoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.UpsertHistory(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"history": row})
}

// GET /cases/:caseId/exam-sections
func (h *CaseHandler) ListExamSections(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.caseService.ListExamSections(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"exam_sections": rows})
}

// POST /cases/:caseId/exam-sections
func (h *CaseHandler) CreateExamSection(c *gin.Context) {
	var req services.ExamSectionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.CreateExamSection(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Created(c, gin.H{"exam_section": row})
}

// PUT /cases/:caseId/exam-sections/:sectionId
func (h *CaseHandler) UpdateExamSection(c *gin.Context) {
	var req services.ExamSectionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.UpdateExamSection(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "sectionId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"exam_section": row})
}

// DELETE /cases/:caseId/exam-sections/:sectionId
func (h *CaseHandler) DeleteExamSection(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.caseService.DeleteExamSection(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "sectionId")); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// GET /cases/:caseId/performed-tests
func (h *CaseHandler) ListPerformedTests(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.caseService.ListPerformedTests(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"performed_tests": rows})
}

// POST /cases/:caseId/performed-tests
func (h *CaseHandler) CreatePerformedTest(c *gin.Context) {
	var req services.PerformedTestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.CreatePerformedTest(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Created(c, gin.H{"performed_test": row})
}

// PUT /cases/:caseId/performed-tests/:testId
func (h *CaseHandler) UpdatePerformedTest(c *gin.Context) {
	var req services.PerformedTestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.UpdatePerformedTest(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "testId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"performed_test": row})
}

// DELETE /cases/:caseId/performed-tests/:testId
func (h *CaseHandler) DeletePerformedTest(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.caseService.DeletePerformedTest(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "testId")); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// GET /cases/:caseId/assessment-entries
func (h *CaseHandler) ListAssessmentEntries(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.caseService.ListAssessmentEntries(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"assessment_entries": rows})
}

// POST /cases/:caseId/assessment-entries
func (h *CaseHandler) CreateAssessmentEntry(c *gin.Context) {
	var req services.AssessmentEntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.CreateAssessmentEntry(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Created(c, gin.H{"assessment_entry": row})
}

// PUT /cases/:caseId/assessment-entries/:entryId
func (h *CaseHandler) UpdateAssessmentEntry(c *gin.Context) {
	var req services.AssessmentEntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.caseService.UpdateAssessmentEntry(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "entryId"), req)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"assessment_entry": row})
}

// DELETE /cases/:caseId/assessment-entries/:entryId
func (h *CaseHandler) DeleteAssessmentEntry(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.caseService.DeleteAssessmentEntry(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "entryId")); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// POST /cases/:caseId/imaging — multipart: file, kind?, label?,
// performedTestId?
func (h *CaseHandler) UploadImaging(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImagingFormBytes)

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

	in := services.ImagingUploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Kind:        c.PostForm("kind"),
		Label:       c.PostForm("label"),
		Data:        raw,
	}
	if raw := strings.TrimSpace(c.PostForm("performedTestId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "invalid performedTestId")
			return
		}
		in.PerformedTestID = &id
	}

	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	study, err := h.imagingService.Upload(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), in)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Created(c, gin.H{"imaging_study": study})
}

// GET /cases/:caseId/imaging
func (h *CaseHandler) ListImaging(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.imagingService.List(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"imaging_studies": rows})
}

// DELETE /cases/:caseId/imaging/:imagingId
func (h *CaseHandler) DeleteImaging(c *gin.Context) {
	rd := caller(c)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.imagingService.Delete(dbc, rd.UserID, rd.Role, uuidParam(c, "caseId"), uuidParam(c, "imagingId")); err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}
