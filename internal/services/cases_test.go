package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	"github.com/yungbote/optocase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
)

func newCaseService(tb testing.TB, db *gorm.DB) CaseService {
	tb.Helper()
	log := testutil.Logger(tb)
	return NewCaseService(
		db,
		log,
		repos.NewCaseRepo(db, log),
		repos.NewPatientRepo(db, log),
		repos.NewAppointmentRepo(db, log),
		repos.NewCaseHistoryRepo(db, log),
		repos.NewExamSectionRepo(db, log),
		repos.NewPerformedTestRepo(db, log),
		repos.NewImagingStudyRepo(db, log),
		repos.NewAssessmentPlanRepo(db, log),
		repos.NewCaseAttemptRepo(db, log),
		nil,
		nil,
	)
}

func TestCaseCreateDefaultsToDraft(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-create@example.com")

	cs, err := svc.Create(dbc, prof.ID, CreateCaseInput{
		Title:   "  Progressive myopia  ",
		Summary: "Teenager with worsening distance vision",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cs.Status != types.CaseDraft {
		t.Fatalf("status = %s, want DRAFT", cs.Status)
	}
	if cs.Title != "Progressive myopia" {
		t.Fatalf("title = %q, want trimmed", cs.Title)
	}
	if cs.Difficulty != types.DifficultyIntroductory {
		t.Fatalf("difficulty = %s, want introductory default", cs.Difficulty)
	}

	_, err = svc.Create(dbc, prof.ID, CreateCaseInput{Title: ""})
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}

func TestPublishRequiresWorkableContent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-publish@example.com")
	role := string(types.RoleProfessor)
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)

	_, err := svc.Publish(dbc, prof.ID, role, cs.ID)
	ae := wantAPIError(t, err, http.StatusConflict, "CASE_NOT_READY")
	payload, ok := ae.Payload.(map[string]any)
	if !ok {
		t.Fatalf("CASE_NOT_READY payload: %T", ae.Payload)
	}
	missing, ok := payload["missing"].([]string)
	if !ok || len(missing) != 3 {
		t.Fatalf("missing = %v, want patient, exam_sections, assessment_plan", payload["missing"])
	}

	testutil.SeedPatient(t, ctx, tx, cs.ID)
	testutil.SeedExamSection(t, ctx, tx, cs.ID, "entrance", 0)
	testutil.SeedAssessmentEntry(t, ctx, tx, cs.ID, 0)

	published, err := svc.Publish(dbc, prof.ID, role, cs.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != types.CasePublished || published.PublishedAt == nil {
		t.Fatalf("publish left %s / %v", published.Status, published.PublishedAt)
	}

	again, err := svc.Publish(dbc, prof.ID, role, cs.ID)
	if err != nil {
		t.Fatalf("Publish (repeat): %v", err)
	}
	if again.Status != types.CasePublished {
		t.Fatalf("repeat publish status = %s", again.Status)
	}

	unpublished, err := svc.Unpublish(dbc, prof.ID, role, cs.ID)
	if err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if unpublished.Status != types.CaseDraft || unpublished.PublishedAt != nil {
		t.Fatalf("unpublish left %s / %v", unpublished.Status, unpublished.PublishedAt)
	}

	archived, err := svc.Archive(dbc, prof.ID, role, cs.ID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.Status != types.CaseArchived {
		t.Fatalf("archive left %s", archived.Status)
	}
}

func TestCaseVisibilityCollapsesToNotFound(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	owner := testutil.SeedProfessor(t, ctx, tx, "prof-vis-owner@example.com")
	rival := testutil.SeedProfessor(t, ctx, tx, "prof-vis-rival@example.com")
	admin := testutil.SeedUser(t, ctx, tx, "admin-vis@example.com")
	role := string(types.RoleProfessor)

	draft := testutil.SeedCase(t, ctx, tx, owner.ID, types.CaseDraft)

	if _, err := svc.Get(dbc, owner.ID, role, draft.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	_, err := svc.Get(dbc, rival.ID, role, draft.ID)
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
	if _, err := svc.Get(dbc, admin.ID, string(types.RoleAdmin), draft.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}

	published := testutil.SeedCase(t, ctx, tx, owner.ID, types.CasePublished)
	if _, err := svc.Get(dbc, rival.ID, role, published.ID); err != nil {
		t.Fatalf("published Get by non-owner: %v", err)
	}

	_, err = svc.Update(dbc, rival.ID, role, draft.ID, UpdateCaseInput{})
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
	err = svc.Delete(dbc, rival.ID, role, draft.ID)
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestCatalogListsOnlyPublishedCases(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-catalog@example.com")
	testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)
	pub := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
	testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseArchived)

	entries, err := svc.Catalog(dbc)
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.ID == pub.ID {
			found = true
			continue
		}
		// Any other row must be a published case from another test sharing
		// the database, never this professor's draft or archive.
		var c types.Case
		if err := tx.WithContext(ctx).Where("id = ?", e.ID).First(&c).Error; err != nil {
			t.Fatalf("load catalog row: %v", err)
		}
		if c.Status != types.CasePublished {
			t.Fatalf("catalog leaked %s case %s", c.Status, c.ID)
		}
	}
	if !found {
		t.Fatalf("catalog missing published case %s", pub.ID)
	}
}

func TestWorkbookWithholdsAnswerKeyUntilCompleted(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)
	log := testutil.Logger(t)
	attemptRepo := repos.NewCaseAttemptRepo(db, log)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-workbook@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-workbook@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
	testutil.SeedPatient(t, ctx, tx, cs.ID)
	testutil.SeedExamSection(t, ctx, tx, cs.ID, "entrance", 0)
	testutil.SeedAssessmentEntry(t, ctx, tx, cs.ID, 0)

	wb, err := svc.Workbook(dbc, student.ID, cs.ID)
	if err != nil {
		t.Fatalf("Workbook (no attempt): %v", err)
	}
	if wb.Attempt != nil {
		t.Fatalf("expected no attempt, got %+v", wb.Attempt)
	}
	if wb.AssessmentPlan != nil {
		t.Fatalf("answer key leaked before attempt: %+v", wb.AssessmentPlan)
	}
	if wb.Patient == nil || len(wb.ExamSections) != 1 {
		t.Fatalf("workbook content incomplete: %+v", wb)
	}

	a := testutil.SeedAttempt(t, ctx, tx, cs.ID, student.ID)
	wb, err = svc.Workbook(dbc, student.ID, cs.ID)
	if err != nil {
		t.Fatalf("Workbook (in progress): %v", err)
	}
	if wb.Attempt == nil || wb.Attempt.ID != a.ID {
		t.Fatalf("workbook attempt = %+v, want %s", wb.Attempt, a.ID)
	}
	if wb.AssessmentPlan != nil {
		t.Fatalf("answer key leaked while in progress")
	}

	if err := attemptRepo.UpdateFields(dbc, a.ID, map[string]any{"status": types.AttemptCompleted}); err != nil {
		t.Fatalf("complete attempt: %v", err)
	}
	wb, err = svc.Workbook(dbc, student.ID, cs.ID)
	if err != nil {
		t.Fatalf("Workbook (completed): %v", err)
	}
	if len(wb.AssessmentPlan) != 1 {
		t.Fatalf("answer key absent after completion: %+v", wb.AssessmentPlan)
	}

	// The author always sees their own key.
	wb, err = svc.Workbook(dbc, prof.ID, cs.ID)
	if err != nil {
		t.Fatalf("Workbook (author): %v", err)
	}
	if len(wb.AssessmentPlan) != 1 {
		t.Fatalf("author denied answer key")
	}
}

func TestExamSectionAuthoringScopedToCase(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-exam@example.com")
	role := string(types.RoleProfessor)
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)
	other := testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)

	sec, err := svc.CreateExamSection(dbc, prof.ID, role, cs.ID, ExamSectionInput{
		Section:  "slit lamp",
		Position: 1,
		Findings: json.RawMessage(`{"lids":"clear"}`),
	})
	if err != nil {
		t.Fatalf("CreateExamSection: %v", err)
	}

	_, err = svc.CreateExamSection(dbc, prof.ID, role, cs.ID, ExamSectionInput{Section: ""})
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")

	// Section ids do not cross cases.
	_, err = svc.UpdateExamSection(dbc, prof.ID, role, other.ID, sec.ID, ExamSectionInput{Section: "slit lamp", Position: 0})
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	updated, err := svc.UpdateExamSection(dbc, prof.ID, role, cs.ID, sec.ID, ExamSectionInput{
		Section:  "slit lamp",
		Position: 2,
		Findings: json.RawMessage(`{"lids":"mgd"}`),
	})
	if err != nil {
		t.Fatalf("UpdateExamSection: %v", err)
	}
	if updated.Position != 2 {
		t.Fatalf("position = %d, want 2", updated.Position)
	}
	sameJSON(t, updated.Findings, `{"lids":"mgd"}`)

	err = svc.DeleteExamSection(dbc, prof.ID, role, other.ID, sec.ID)
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
	if err := svc.DeleteExamSection(dbc, prof.ID, role, cs.ID, sec.ID); err != nil {
		t.Fatalf("DeleteExamSection: %v", err)
	}

	rows, err := svc.ListExamSections(dbc, prof.ID, role, cs.ID)
	if err != nil {
		t.Fatalf("ListExamSections: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("sections after delete = %d, want 0", len(rows))
	}
}

func TestAssessmentEntryValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-assess@example.com")
	role := string(types.RoleProfessor)
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)

	_, err := svc.CreateAssessmentEntry(dbc, prof.ID, role, cs.ID, AssessmentEntryInput{DiagnosisText: "   "})
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")

	e, err := svc.CreateAssessmentEntry(dbc, prof.ID, role, cs.ID, AssessmentEntryInput{
		Position:      0,
		DiagnosisCode: "H52.13",
		DiagnosisText: "Myopia, bilateral",
		PlanText:      "Updated spectacle rx",
	})
	if err != nil {
		t.Fatalf("CreateAssessmentEntry: %v", err)
	}

	updated, err := svc.UpdateAssessmentEntry(dbc, prof.ID, role, cs.ID, e.ID, AssessmentEntryInput{
		Position:      1,
		DiagnosisCode: "H52.13",
		DiagnosisText: "Myopia, bilateral, progressive",
		PlanText:      "Discuss myopia management",
	})
	if err != nil {
		t.Fatalf("UpdateAssessmentEntry: %v", err)
	}
	if updated.Position != 1 || updated.DiagnosisText != "Myopia, bilateral, progressive" {
		t.Fatalf("update left %+v", updated)
	}

	if err := svc.DeleteAssessmentEntry(dbc, prof.ID, role, cs.ID, e.ID); err != nil {
		t.Fatalf("DeleteAssessmentEntry: %v", err)
	}
	_, err = svc.UpdateAssessmentEntry(dbc, prof.ID, role, cs.ID, e.ID, AssessmentEntryInput{DiagnosisText: "x"})
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestListOwnedFiltersByStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newCaseService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-listowned@example.com")
	testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)
	testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	all, err := svc.ListOwned(dbc, prof.ID, "")
	if err != nil {
		t.Fatalf("ListOwned: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("owned = %d, want 2", len(all))
	}

	drafts, err := svc.ListOwned(dbc, prof.ID, "draft")
	if err != nil {
		t.Fatalf("ListOwned (draft): %v", err)
	}
	if len(drafts) != 1 || drafts[0].Status != types.CaseDraft {
		t.Fatalf("draft filter = %+v", drafts)
	}

	_, err = svc.ListOwned(dbc, prof.ID, "nonsense")
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}
