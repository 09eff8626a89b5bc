package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/events"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/platform/validate"
)

type CreateCaseInput struct {
	Title      string          `json:"title" validate:"required,max=200"`
	Summary    string          `json:"summary" validate:"max=2000"`
	Difficulty string          `json:"difficulty" validate:"omitempty,oneof=introductory intermediate advanced"`
	Tags       json.RawMessage `json:"tags"`
}

// UpdateCaseInput carries partial updates; nil fields stay untouched.
type UpdateCaseInput struct {
	Title      *string          `json:"title" validate:"omitempty,max=200"`
	Summary    *string          `json:"summary" validate:"omitempty,max=2000"`
	Difficulty *string          `json:"difficulty" validate:"omitempty,oneof=introductory intermediate advanced"`
	Tags       *json.RawMessage `json:"tags"`
}

type PatientInput struct {
	FirstName   string          `json:"first_name" validate:"max=100"`
	LastName    string          `json:"last_name" validate:"max=100"`
	DateOfBirth *time.Time      `json:"date_of_birth"`
	Sex         string          `json:"sex" validate:"max=20"`
	Race        string          `json:"race" validate:"max=60"`
	Occupation  string          `json:"occupation" validate:"max=120"`
	Insurance   string          `json:"insurance" validate:"max=120"`
	ReferredBy  string          `json:"referred_by" validate:"max=120"`
	Contact     json.RawMessage `json:"contact"`
}

type AppointmentInput struct {
	OccurredOn     *time.Time `json:"occurred_on"`
	Reason         string     `json:"reason" validate:"max=300"`
	ChiefComplaint string     `json:"chief_complaint" validate:"max=500"`
	Notes          string     `json:"notes"`
}

type HistoryInput struct {
	HPI            string          `json:"hpi"`
	MedicalHistory string          `json:"medical_history"`
	OcularHistory  string          `json:"ocular_history"`
	FamilyHistory  string          `json:"family_history"`
	Medications    string          `json:"medications"`
	Allergies      string          `json:"allergies"`
	Social         json.RawMessage `json:"social"`
}

type ExamSectionInput struct {
	Section  string          `json:"section" validate:"required,max=80"`
	Position int             `json:"position" validate:"gte=0"`
	Findings json.RawMessage `json:"findings"`
}

type PerformedTestInput struct {
	Name     string `json:"name" validate:"required,max=160"`
	Eye      string `json:"eye" validate:"omitempty,oneof=OD OS OU"`
	Notes    string `json:"notes"`
	Position int    `json:"position" validate:"gte=0"`
}

type AssessmentEntryInput struct {
	Position      int    `json:"position" validate:"gte=0"`
	DiagnosisCode string `json:"diagnosis_code" validate:"max=40"`
	DiagnosisText string `json:"diagnosis_text" validate:"required,max=500"`
	PlanText      string `json:"plan_text" validate:"max=4000"`
}

// CatalogEntry is the browse-list shape students see: enough to pick a case,
// nothing an attempt would spoil.
type CatalogEntry struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Summary     string           `json:"summary"`
	Difficulty  types.Difficulty `json:"difficulty"`
	Tags        datatypes.JSON   `json:"tags"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
}

// Workbook is everything a student needs on screen while working a case.
// AssessmentPlan stays nil until their attempt is COMPLETED; before that the
// answer key would defeat the exercise.
type Workbook struct {
	Case           *types.Case                  `json:"case"`
	Patient        *types.Patient               `json:"patient,omitempty"`
	Appointment    *types.Appointment           `json:"appointment,omitempty"`
	History        *types.CaseHistory           `json:"history,omitempty"`
	ExamSections   []*types.ExamSection         `json:"exam_sections"`
	PerformedTests []*types.PerformedTest       `json:"performed_tests"`
	Imaging        []*types.ImagingStudy        `json:"imaging"`
	AssessmentPlan []*types.AssessmentPlanEntry `json:"assessment_plan,omitempty"`
	Attempt        *types.CaseAttempt           `json:"attempt,omitempty"`
}

// CaseService covers the professor authoring surface plus the read paths
// students browse. Ownership misses collapse into NOT_FOUND everywhere.
type CaseService interface {
	Create(dbc dbctx.Context, ownerID uuid.UUID, in CreateCaseInput) (*types.Case, error)
	Get(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error)
	ListOwned(dbc dbctx.Context, ownerID uuid.UUID, status string) ([]*types.Case, error)
	Update(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in UpdateCaseInput) (*types.Case, error)
	Delete(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) error

	Publish(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error)
	Unpublish(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error)
	Archive(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error)

	Catalog(dbc dbctx.Context) ([]*CatalogEntry, error)
	Workbook(dbc dbctx.Context, userID uuid.UUID, caseID uuid.UUID) (*Workbook, error)

	// AssertAuthor reports whether the caller may administer the case, with
	// the usual NOT_FOUND collapse. The SSE topic gate uses it.
	AssertAuthor(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) error

	UpsertPatient(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in PatientInput) (*types.Patient, error)
	UpsertAppointment(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in AppointmentInput) (*types.Appointment, error)
	UpsertHistory(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in HistoryInput) (*types.CaseHistory, error)

	ListExamSections(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.ExamSection, error)
	CreateExamSection(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in ExamSectionInput) (*types.ExamSection, error)
	UpdateExamSection(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, sectionID uuid.UUID, in ExamSectionInput) (*types.ExamSection, error)
	DeleteExamSection(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, sectionID uuid.UUID) error

	ListPerformedTests(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.PerformedTest, error)
	CreatePerformedTest(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in PerformedTestInput) (*types.PerformedTest, error)
	UpdatePerformedTest(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, testID uuid.UUID, in PerformedTestInput) (*types.PerformedTest, error)
	DeletePerformedTest(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, testID uuid.UUID) error

	ListAssessmentEntries(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.AssessmentPlanEntry, error)
	CreateAssessmentEntry(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in AssessmentEntryInput) (*types.AssessmentPlanEntry, error)
	UpdateAssessmentEntry(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, entryID uuid.UUID, in AssessmentEntryInput) (*types.AssessmentPlanEntry, error)
	DeleteAssessmentEntry(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, entryID uuid.UUID) error
}

type caseService struct {
	db          *gorm.DB
	log         *logger.Logger
	caseRepo    repos.CaseRepo
	patientRepo repos.PatientRepo
	apptRepo    repos.AppointmentRepo
	historyRepo repos.CaseHistoryRepo
	examRepo    repos.ExamSectionRepo
	testRepo    repos.PerformedTestRepo
	imagingRepo repos.ImagingStudyRepo
	entryRepo   repos.AssessmentPlanRepo
	attemptRepo repos.CaseAttemptRepo
	notifier    CaseNotifier
	publisher   events.Publisher
}

func NewCaseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	caseRepo repos.CaseRepo,
	patientRepo repos.PatientRepo,
	apptRepo repos.AppointmentRepo,
	historyRepo repos.CaseHistoryRepo,
	examRepo repos.ExamSectionRepo,
	testRepo repos.PerformedTestRepo,
	imagingRepo repos.ImagingStudyRepo,
	entryRepo repos.AssessmentPlanRepo,
	attemptRepo repos.CaseAttemptRepo,
	notifier CaseNotifier,
	publisher events.Publisher,
) CaseService {
	return &caseService{
		db:          db,
		log:         baseLog.With("service", "CaseService"),
		caseRepo:    caseRepo,
		patientRepo: patientRepo,
		apptRepo:    apptRepo,
		historyRepo: historyRepo,
		examRepo:    examRepo,
		testRepo:    testRepo,
		imagingRepo: imagingRepo,
		entryRepo:   entryRepo,
		attemptRepo: attemptRepo,
		notifier:    notifier,
		publisher:   publisher,
	}
}

func errCaseNotFound() error {
	return apierr.New(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("case not found"))
}

func badRequest(err error) error {
	ae := apierr.New(http.StatusBadRequest, "BAD_REQUEST", err)
	if fields := validate.Fields(err); len(fields) > 0 {
		return ae.WithPayload(map[string]any{"fields": fields})
	}
	return ae
}

// ownedCase loads a case the caller may author against. Admins pass for any
// case; everyone else must own it. Misses and foreign cases both read as
// NOT_FOUND.
func (s *caseService) ownedCase(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error) {
	if callerID == uuid.Nil || caseID == uuid.Nil {
		return nil, errCaseNotFound()
	}
	row, err := s.caseRepo.GetByID(dbc, caseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errCaseNotFound()
	}
	if row.OwnerID != callerID && callerRole != string(types.RoleAdmin) {
		return nil, errCaseNotFound()
	}
	return row, nil
}

func (s *caseService) AssertAuthor(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) error {
	_, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	return err
}

func (s *caseService) Create(dbc dbctx.Context, ownerID uuid.UUID, in CreateCaseInput) (*types.Case, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}

	row := &types.Case{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Title:      in.Title,
		Summary:    in.Summary,
		Difficulty: types.Difficulty(in.Difficulty),
		Status:     types.CaseDraft,
		Tags:       jsonOrEmptyArray(in.Tags),
	}
	if row.Difficulty == "" {
		row.Difficulty = types.DifficultyIntroductory
	}
	if err := s.caseRepo.Create(dbc, row); err != nil {
		return nil, err
	}
	s.log.Info("case created", "case_id", row.ID, "owner_id", ownerID)
	return row, nil
}

func (s *caseService) Get(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error) {
	if caseID == uuid.Nil {
		return nil, errCaseNotFound()
	}
	row, err := s.caseRepo.GetByID(dbc, caseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errCaseNotFound()
	}
	// Published cases are world-readable; everything else only to the
	// owner (or an admin).
	if row.Status != types.CasePublished && row.OwnerID != callerID && callerRole != string(types.RoleAdmin) {
		return nil, errCaseNotFound()
	}
	return row, nil
}

func (s *caseService) ListOwned(dbc dbctx.Context, ownerID uuid.UUID, status string) ([]*types.Case, error) {
	st := types.CaseStatus(strings.ToUpper(strings.TrimSpace(status)))
	switch st {
	case "", types.CaseDraft, types.CasePublished, types.CaseArchived:
	default:
		return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST", fmt.Errorf("unknown status filter %q", status))
	}
	return s.caseRepo.ListByOwner(dbc, ownerID, st)
}

func (s *caseService) Update(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in UpdateCaseInput) (*types.Case, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}

	updates := map[string]any{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST", fmt.Errorf("title cannot be empty"))
		}
		updates["title"] = t
		row.Title = t
	}
	if in.Summary != nil {
		updates["summary"] = strings.TrimSpace(*in.Summary)
		row.Summary = strings.TrimSpace(*in.Summary)
	}
	if in.Difficulty != nil {
		updates["difficulty"] = *in.Difficulty
		row.Difficulty = types.Difficulty(*in.Difficulty)
	}
	if in.Tags != nil {
		updates["tags"] = jsonOrEmptyArray(*in.Tags)
		row.Tags = jsonOrEmptyArray(*in.Tags)
	}
	if len(updates) == 0 {
		return row, nil
	}
	if err := s.caseRepo.UpdateFields(dbc, row.ID, updates); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *caseService) Delete(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) error {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return err
	}
	return s.caseRepo.SoftDelete(dbc, row.ID)
}

func (s *caseService) Publish(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if row.Status == types.CasePublished {
		return row, nil
	}

	// A case is publishable once a student could meaningfully work it:
	// someone to examine, findings to read, an answer key to grade against.
	patient, err := s.patientRepo.GetByCaseID(dbc, row.ID)
	if err != nil {
		return nil, err
	}
	examCount, err := s.examRepo.CountByCase(dbc, row.ID)
	if err != nil {
		return nil, err
	}
	entryCount, err := s.entryRepo.CountByCase(dbc, row.ID)
	if err != nil {
		return nil, err
	}
	var missing []string
	if patient == nil {
		missing = append(missing, "patient")
	}
	if examCount == 0 {
		missing = append(missing, "exam_sections")
	}
	if entryCount == 0 {
		missing = append(missing, "assessment_plan")
	}
	if len(missing) > 0 {
		return nil, apierr.New(http.StatusConflict, "CASE_NOT_READY",
			fmt.Errorf("case is missing: %s", strings.Join(missing, ", "))).
			WithPayload(map[string]any{"missing": missing})
	}

	now := time.Now().UTC()
	if err := s.caseRepo.UpdateFields(dbc, row.ID, map[string]any{
		"status":       types.CasePublished,
		"published_at": now,
	}); err != nil {
		return nil, err
	}
	row.Status = types.CasePublished
	row.PublishedAt = &now

	s.log.Info("case published", "case_id", row.ID)
	if s.notifier != nil {
		s.notifier.CasePublished(row)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(dbc.Ctx, events.Event{
			Type:    events.TypeCasePublished,
			Key:     row.ID.String(),
			ActorID: callerID,
			Payload: map[string]any{"case_id": row.ID, "title": row.Title},
		}); err != nil {
			s.log.Warn("publish case.published failed", "error", err)
		}
	}
	return row, nil
}

func (s *caseService) Unpublish(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if row.Status == types.CaseDraft {
		return row, nil
	}
	// Attempts keep their rows; the case just leaves the catalog.
	if err := s.caseRepo.UpdateFields(dbc, row.ID, map[string]any{
		"status":       types.CaseDraft,
		"published_at": nil,
	}); err != nil {
		return nil, err
	}
	row.Status = types.CaseDraft
	row.PublishedAt = nil
	return row, nil
}

func (s *caseService) Archive(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if row.Status == types.CaseArchived {
		return row, nil
	}
	if err := s.caseRepo.UpdateFields(dbc, row.ID, map[string]any{"status": types.CaseArchived}); err != nil {
		return nil, err
	}
	row.Status = types.CaseArchived
	return row, nil
}

func (s *caseService) Catalog(dbc dbctx.Context) ([]*CatalogEntry, error) {
	rows, err := s.caseRepo.ListPublished(dbc)
	if err != nil {
		return nil, err
	}
	out := make([]*CatalogEntry, 0, len(rows))
	for _, c := range rows {
		out = append(out, &CatalogEntry{
			ID:          c.ID,
			Title:       c.Title,
			Summary:     c.Summary,
			Difficulty:  c.Difficulty,
			Tags:        c.Tags,
			PublishedAt: c.PublishedAt,
		})
	}
	return out, nil
}

func (s *caseService) Workbook(dbc dbctx.Context, userID uuid.UUID, caseID uuid.UUID) (*Workbook, error) {
	if caseID == uuid.Nil {
		return nil, errCaseNotFound()
	}
	cs, err := s.caseRepo.GetByID(dbc, caseID)
	if err != nil {
		return nil, err
	}
	if cs == nil || (cs.Status != types.CasePublished && cs.OwnerID != userID) {
		return nil, errCaseNotFound()
	}

	wb := &Workbook{Case: cs}
	if wb.Patient, err = s.patientRepo.GetByCaseID(dbc, caseID); err != nil {
		return nil, err
	}
	if wb.Appointment, err = s.apptRepo.GetByCaseID(dbc, caseID); err != nil {
		return nil, err
	}
	if wb.History, err = s.historyRepo.GetByCaseID(dbc, caseID); err != nil {
		return nil, err
	}
	if wb.ExamSections, err = s.examRepo.ListByCase(dbc, caseID); err != nil {
		return nil, err
	}
	if wb.PerformedTests, err = s.testRepo.ListByCase(dbc, caseID); err != nil {
		return nil, err
	}
	if wb.Imaging, err = s.imagingRepo.ListByCase(dbc, caseID); err != nil {
		return nil, err
	}

	attempt, err := s.attemptRepo.GetByCaseAndUser(dbc, caseID, userID)
	if err != nil {
		return nil, err
	}
	wb.Attempt = attempt

	// The answer key unlocks after completion, or for the author reviewing
	// their own case.
	if attempt.Completed() || cs.OwnerID == userID {
		if wb.AssessmentPlan, err = s.entryRepo.ListByCase(dbc, caseID); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

func (s *caseService) UpsertPatient(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in PatientInput) (*types.Patient, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	p := &types.Patient{
		CaseID:      row.ID,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		DateOfBirth: in.DateOfBirth,
		Sex:         strings.TrimSpace(in.Sex),
		Race:        strings.TrimSpace(in.Race),
		Occupation:  strings.TrimSpace(in.Occupation),
		Insurance:   strings.TrimSpace(in.Insurance),
		ReferredBy:  strings.TrimSpace(in.ReferredBy),
		Contact:     jsonOrEmptyObject(in.Contact),
	}
	if err := s.patientRepo.Upsert(dbc, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *caseService) UpsertAppointment(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in AppointmentInput) (*types.Appointment, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	a := &types.Appointment{
		CaseID:         row.ID,
		OccurredOn:     in.OccurredOn,
		Reason:         strings.TrimSpace(in.Reason),
		ChiefComplaint: strings.TrimSpace(in.ChiefComplaint),
		Notes:          in.Notes,
	}
	if err := s.apptRepo.Upsert(dbc, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *caseService) UpsertHistory(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in HistoryInput) (*types.CaseHistory, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	h := &types.CaseHistory{
		CaseID:         row.ID,
		HPI:            in.HPI,
		MedicalHistory: in.MedicalHistory,
		OcularHistory:  in.OcularHistory,
		FamilyHistory:  in.FamilyHistory,
		Medications:    in.Medications,
		Allergies:      in.Allergies,
		Social:         jsonOrEmptyObject(in.Social),
	}
	if err := s.historyRepo.Upsert(dbc, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *caseService) ListExamSections(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.ExamSection, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	return s.examRepo.ListByCase(dbc, row.ID)
}

func (s *caseService) CreateExamSection(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in ExamSectionInput) (*types.ExamSection, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	in.Section = strings.TrimSpace(in.Section)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	sec := &types.ExamSection{
		ID:       uuid.New(),
		CaseID:   row.ID,
		Section:  in.Section,
		Position: in.Position,
		Findings: jsonOrEmptyObject(in.Findings),
	}
	if err := s.examRepo.Create(dbc, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *caseService) UpdateExamSection(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, sectionID uuid.UUID, in ExamSectionInput) (*types.ExamSection, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	in.Section = strings.TrimSpace(in.Section)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	sec, err := s.examRepo.GetByID(dbc, sectionID)
	if err != nil {
		return nil, err
	}
	if sec == nil || sec.CaseID != row.ID {
		return nil, errCaseNotFound()
	}
	updates := map[string]any{
		"section":  in.Section,
		"position": in.Position,
		"findings": jsonOrEmptyObject(in.Findings),
	}
	if err := s.examRepo.UpdateFields(dbc, sec.ID, updates); err != nil {
		return nil, err
	}
	sec.Section = in.Section
	sec.Position = in.Position
	sec.Findings = jsonOrEmptyObject(in.Findings)
	return sec, nil
}

func (s *caseService) DeleteExamSection(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, sectionID uuid.UUID) error {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return err
	}
	sec, err := s.examRepo.GetByID(dbc, sectionID)
	if err != nil {
		return err
	}
	if sec == nil || sec.CaseID != row.ID {
		return errCaseNotFound()
	}
	return s.examRepo.Delete(dbc, sec.ID)
}

func (s *caseService) ListPerformedTests(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.PerformedTest, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	return s.testRepo.ListByCase(dbc, row.ID)
}

func (s *caseService) CreatePerformedTest(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in PerformedTestInput) (*types.PerformedTest, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	pt := &types.PerformedTest{
		ID:       uuid.New(),
		CaseID:   row.ID,
		Name:     in.Name,
		Eye:      types.Eye(in.Eye),
		Notes:    in.Notes,
		Position: in.Position,
	}
	if err := s.testRepo.Create(dbc, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

func (s *caseService) UpdatePerformedTest(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, testID uuid.UUID, in PerformedTestInput) (*types.PerformedTest, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	pt, err := s.testRepo.GetByID(dbc, testID)
	if err != nil {
		return nil, err
	}
	if pt == nil || pt.CaseID != row.ID {
		return nil, errCaseNotFound()
	}
	updates := map[string]any{
		"name":     in.Name,
		"eye":      in.Eye,
		"notes":    in.Notes,
		"position": in.Position,
	}
	if err := s.testRepo.UpdateFields(dbc, pt.ID, updates); err != nil {
		return nil, err
	}
	pt.Name = in.Name
	pt.Eye = types.Eye(in.Eye)
	pt.Notes = in.Notes
	pt.Position = in.Position
	return pt, nil
}

func (s *caseService) DeletePerformedTest(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, testID uuid.UUID) error {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return err
	}
	pt, err := s.testRepo.GetByID(dbc, testID)
	if err != nil {
		return err
	}
	if pt == nil || pt.CaseID != row.ID {
		return errCaseNotFound()
	}
	return s.testRepo.Delete(dbc, pt.ID)
}

func (s *caseService) ListAssessmentEntries(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.AssessmentPlanEntry, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	return s.entryRepo.ListByCase(dbc, row.ID)
}

func (s *caseService) CreateAssessmentEntry(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in AssessmentEntryInput) (*types.AssessmentPlanEntry, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	in.DiagnosisText = strings.TrimSpace(in.DiagnosisText)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	e := &types.AssessmentPlanEntry{
		ID:            uuid.New(),
		CaseID:        row.ID,
		Position:      in.Position,
		DiagnosisCode: strings.TrimSpace(in.DiagnosisCode),
		DiagnosisText: in.DiagnosisText,
		PlanText:      in.PlanText,
	}
	if err := s.entryRepo.Create(dbc, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *caseService) UpdateAssessmentEntry(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, entryID uuid.UUID, in AssessmentEntryInput) (*types.AssessmentPlanEntry, error) {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	in.DiagnosisText = strings.TrimSpace(in.DiagnosisText)
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}
	e, err := s.entryRepo.GetByID(dbc, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.CaseID != row.ID {
		return nil, errCaseNotFound()
	}
	updates := map[string]any{
		"position":       in.Position,
		"diagnosis_code": strings.TrimSpace(in.DiagnosisCode),
		"diagnosis_text": in.DiagnosisText,
		"plan_text":      in.PlanText,
	}
	if err := s.entryRepo.UpdateFields(dbc, e.ID, updates); err != nil {
		return nil, err
	}
	e.Position = in.Position
	e.DiagnosisCode = strings.TrimSpace(in.DiagnosisCode)
	e.DiagnosisText = in.DiagnosisText
	e.PlanText = in.PlanText
	return e, nil
}

func (s *caseService) DeleteAssessmentEntry(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, entryID uuid.UUID) error {
	row, err := s.ownedCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return err
	}
	e, err := s.entryRepo.GetByID(dbc, entryID)
	if err != nil {
		return err
	}
	if e == nil || e.CaseID != row.ID {
		return errCaseNotFound()
	}
	return s.entryRepo.Delete(dbc, e.ID)
}

func jsonOrEmptyObject(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(raw)
}

func jsonOrEmptyArray(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte(`[]`))
	}
	return datatypes.JSON(raw)
}
