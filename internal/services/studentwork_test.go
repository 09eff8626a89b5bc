package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	"github.com/yungbote/optocase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
)

func newStudentWorkService(tb testing.TB, db *gorm.DB) StudentWorkService {
	tb.Helper()
	log := testutil.Logger(tb)
	return NewStudentWorkService(
		db,
		log,
		repos.NewCaseAttemptRepo(db, log),
		repos.NewStudentNoteRepo(db, log),
		repos.NewInterpretationRepo(db, log),
		repos.NewImagingStudyRepo(db, log),
	)
}

func TestSaveNoteUpsertsPerSection(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newStudentWorkService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-notes@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-notes@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
	a := testutil.SeedAttempt(t, ctx, tx, cs.ID, student.ID)

	first, err := svc.SaveNote(dbc, student.ID, a.ID, "exam", "check IOP again")
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if first.Body != "check IOP again" || first.Section != "exam" {
		t.Fatalf("note = %+v", first)
	}

	second, err := svc.SaveNote(dbc, student.ID, a.ID, "exam", "IOP 18/19 rechecked")
	if err != nil {
		t.Fatalf("SaveNote (overwrite): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("overwrite created new row: %s vs %s", second.ID, first.ID)
	}
	if second.Body != "IOP 18/19 rechecked" {
		t.Fatalf("overwrite body = %q", second.Body)
	}

	if _, err := svc.SaveNote(dbc, student.ID, a.ID, "plan", "refer retina"); err != nil {
		t.Fatalf("SaveNote (second section): %v", err)
	}

	notes, err := svc.ListNotes(dbc, student.ID, a.ID)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}

	_, err = svc.SaveNote(dbc, student.ID, a.ID, "bogus", "x")
	wantAPIError(t, err, http.StatusBadRequest, "BAD_SECTION")

	_, err = svc.SaveNote(dbc, uuid.New(), a.ID, "exam", "x")
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestSaveNoteRespectsCompletionLock(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newStudentWorkService(t, db)
	log := testutil.Logger(t)
	attemptRepo := repos.NewCaseAttemptRepo(db, log)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-notelock@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-notelock@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
	a := testutil.SeedAttempt(t, ctx, tx, cs.ID, student.ID)

	if _, err := svc.SaveNote(dbc, student.ID, a.ID, "history", "ask about diplopia"); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if err := attemptRepo.UpdateFields(dbc, a.ID, map[string]any{"status": types.AttemptCompleted}); err != nil {
		t.Fatalf("complete attempt: %v", err)
	}

	_, err := svc.SaveNote(dbc, student.ID, a.ID, "history", "too late")
	wantAPIError(t, err, http.StatusForbidden, "CASE_COMPLETED")

	// Reads stay open after completion.
	notes, err := svc.ListNotes(dbc, student.ID, a.ID)
	if err != nil {
		t.Fatalf("ListNotes after completion: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "ask about diplopia" {
		t.Fatalf("notes = %+v", notes)
	}
}

func TestSaveInterpretationChecksStudyBelongsToCase(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newStudentWorkService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-interp@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-interp@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
	foreign := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
	study := testutil.SeedImagingStudy(t, ctx, tx, cs.ID, "fundus")
	foreignStudy := testutil.SeedImagingStudy(t, ctx, tx, foreign.ID, "oct")
	a := testutil.SeedAttempt(t, ctx, tx, cs.ID, student.ID)

	it, err := svc.SaveInterpretation(dbc, student.ID, a.ID, study.ID, "c/d 0.3, healthy rim")
	if err != nil {
		t.Fatalf("SaveInterpretation: %v", err)
	}
	if it.ImagingStudyID != study.ID {
		t.Fatalf("interpretation study = %s, want %s", it.ImagingStudyID, study.ID)
	}

	again, err := svc.SaveInterpretation(dbc, student.ID, a.ID, study.ID, "c/d 0.35 on review")
	if err != nil {
		t.Fatalf("SaveInterpretation (overwrite): %v", err)
	}
	if again.ID != it.ID {
		t.Fatalf("overwrite created new row")
	}
	if again.Body != "c/d 0.35 on review" {
		t.Fatalf("overwrite body = %q", again.Body)
	}

	_, err = svc.SaveInterpretation(dbc, student.ID, a.ID, foreignStudy.ID, "wrong case")
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")

	_, err = svc.SaveInterpretation(dbc, student.ID, a.ID, uuid.New(), "missing study")
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")

	rows, err := svc.ListInterpretations(dbc, student.ID, a.ID)
	if err != nil {
		t.Fatalf("ListInterpretations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("interpretations = %d, want 1", len(rows))
	}
}
