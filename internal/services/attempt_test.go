package services

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	"github.com/yungbote/optocase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
)

func newAttemptService(tb testing.TB, db *gorm.DB) AttemptService {
	tb.Helper()
	log := testutil.Logger(tb)
	return NewAttemptService(
		db,
		log,
		repos.NewCaseRepo(db, log),
		repos.NewCaseAttemptRepo(db, log),
		repos.NewUserRepo(db, log),
		nil,
		nil,
		nil,
	)
}

func wantAPIError(tb testing.TB, err error, status int, code string) *apierr.Error {
	tb.Helper()
	if err == nil {
		tb.Fatalf("expected %s, got nil error", code)
	}
	ae, ok := apierr.As(err)
	if !ok {
		tb.Fatalf("expected apierr %s, got %T: %v", code, err, err)
	}
	if ae.Status != status || ae.Code != code {
		tb.Fatalf("expected %d %s, got %d %s", status, code, ae.Status, ae.Code)
	}
	return ae
}

func completedAttemptFrom(tb testing.TB, ae *apierr.Error) *types.CaseAttempt {
	tb.Helper()
	payload, ok := ae.Payload.(map[string]any)
	if !ok {
		tb.Fatalf("CASE_COMPLETED payload: expected map, got %T", ae.Payload)
	}
	att, ok := payload["attempt"].(*types.CaseAttempt)
	if !ok {
		tb.Fatalf("CASE_COMPLETED payload: expected attempt, got %T", payload["attempt"])
	}
	return att
}

func sameJSON(tb testing.TB, got datatypes.JSON, want string) {
	tb.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		tb.Fatalf("unmarshal stored json %q: %v", string(got), err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		tb.Fatalf("unmarshal wanted json %q: %v", want, err)
	}
	if !reflect.DeepEqual(g, w) {
		tb.Fatalf("stored json = %s, want %s", string(got), want)
	}
}

func TestEnsureCreatesSingleInProgressAttempt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-ensure@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-ensure@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	a, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if a.Status != types.AttemptInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", a.Status)
	}
	if a.LastPage != types.DefaultLastPage {
		t.Fatalf("last_page = %q, want %q", a.LastPage, types.DefaultLastPage)
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&types.CaseAttempt{}).
		Where("case_id = ? AND user_id = ?", cs.ID, student.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("attempt rows = %d, want 1", count)
	}

	again, err := svc.Ensure(dbc, student.ID, cs.ID, "exam")
	if err != nil {
		t.Fatalf("Ensure (second): %v", err)
	}
	if again.ID != a.ID {
		t.Fatalf("second ensure returned %s, want %s", again.ID, a.ID)
	}
	if again.LastPage != "exam" {
		t.Fatalf("second ensure last_page = %q, want %q", again.LastPage, "exam")
	}
}

func TestEnsureHidesUnpublishedCases(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-draft@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-draft@example.com")
	draft := testutil.SeedCase(t, ctx, tx, prof.ID, types.CaseDraft)

	_, err := svc.Ensure(dbc, student.ID, draft.ID, "")
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	_, err = svc.Ensure(dbc, student.ID, uuid.New(), "")
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestCompletedAttemptIsLocked(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-locked@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-locked@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	a, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, already, err := svc.Complete(dbc, student.ID, a.ID, "https://cdn.example.com/r.pdf"); err != nil || already {
		t.Fatalf("Complete: already=%v err=%v", already, err)
	}

	_, err = svc.Ensure(dbc, student.ID, cs.ID, "")
	ae := wantAPIError(t, err, http.StatusForbidden, "CASE_COMPLETED")
	if got := completedAttemptFrom(t, ae); got.ID != a.ID {
		t.Fatalf("ensure payload attempt = %s, want %s", got.ID, a.ID)
	}

	_, err = svc.GuardByCase(dbc, student.ID, cs.ID)
	wantAPIError(t, err, http.StatusForbidden, "CASE_COMPLETED")

	_, err = svc.Save(dbc, student.ID, a.ID, "exam", json.RawMessage(`{"va":"20/20"}`), "")
	wantAPIError(t, err, http.StatusForbidden, "CASE_COMPLETED")

	repo := repos.NewCaseAttemptRepo(db, testutil.Logger(t))
	before, err := repo.GetByID(dbc, a.ID)
	if err != nil || before == nil {
		t.Fatalf("reload before: %v", err)
	}

	_, already, err := svc.Complete(dbc, student.ID, a.ID, "")
	if err != nil {
		t.Fatalf("Complete (repeat): %v", err)
	}
	if !already {
		t.Fatalf("Complete (repeat): expected alreadyCompleted")
	}

	after, err := repo.GetByID(dbc, a.ID)
	if err != nil || after == nil {
		t.Fatalf("reload after: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("repeat complete touched updated_at: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
	if after.PDFURL != before.PDFURL {
		t.Fatalf("repeat complete touched pdf_url: %q -> %q", before.PDFURL, after.PDFURL)
	}
}

func TestSaveWritesOnlyTheNamedSection(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-save@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-save@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	a, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	payload := `{"va":{"od":"20/40","os":"20/25"},"pupils":"PERRL"}`
	if _, err := svc.Save(dbc, student.ID, a.ID, "exam", json.RawMessage(payload), "exam"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	repo := repos.NewCaseAttemptRepo(db, testutil.Logger(t))
	row, err := repo.GetByID(dbc, a.ID)
	if err != nil || row == nil {
		t.Fatalf("reload: %v", err)
	}
	sameJSON(t, row.ExamJSON, payload)
	if len(row.HistoryJSON) != 0 || len(row.AssessmentJSON) != 0 || len(row.PlanJSON) != 0 || len(row.AttachmentsJSON) != 0 {
		t.Fatalf("save touched sibling sections: %+v", row)
	}
	if row.LastPage != "exam" {
		t.Fatalf("last_page = %q, want %q", row.LastPage, "exam")
	}
}

func TestSaveRejectsUnknownSection(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-badsec@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-badsec@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	a, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	repo := repos.NewCaseAttemptRepo(db, testutil.Logger(t))
	before, err := repo.GetByID(dbc, a.ID)
	if err != nil || before == nil {
		t.Fatalf("reload before: %v", err)
	}

	_, err = svc.Save(dbc, student.ID, a.ID, "bogus", json.RawMessage(`{"x":1}`), "")
	wantAPIError(t, err, http.StatusBadRequest, "BAD_SECTION")

	after, err := repo.GetByID(dbc, a.ID)
	if err != nil || after == nil {
		t.Fatalf("reload after: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("rejected save touched updated_at")
	}
	if len(after.HistoryJSON) != 0 || len(after.ExamJSON) != 0 {
		t.Fatalf("rejected save wrote a section: %+v", after)
	}
}

func TestSaveCollapsesOwnershipMissToNotFound(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-owner@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-owner@example.com")
	intruder := testutil.SeedUser(t, ctx, tx, "intruder-owner@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	a, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	_, err = svc.Save(dbc, intruder.ID, a.ID, "exam", json.RawMessage(`{}`), "")
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	_, err = svc.Save(dbc, student.ID, uuid.New(), "exam", json.RawMessage(`{}`), "")
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	_, _, err = svc.Complete(dbc, intruder.ID, a.ID, "")
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestGuardByCaseWithoutAttemptReturnsNil(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-guard@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-guard@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	row, err := svc.GuardByCase(dbc, student.ID, cs.ID)
	if err != nil {
		t.Fatalf("GuardByCase: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil attempt, got %+v", row)
	}

	a, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	row, err = svc.GuardByCase(dbc, student.ID, cs.ID)
	if err != nil {
		t.Fatalf("GuardByCase (existing): %v", err)
	}
	if row == nil || row.ID != a.ID {
		t.Fatalf("GuardByCase returned %+v, want attempt %s", row, a.ID)
	}
}

func TestListForUserOrdersInProgressFirst(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)
	log := testutil.Logger(t)
	repo := repos.NewCaseAttemptRepo(db, log)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-list@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-list@example.com")

	base := time.Now().UTC().Truncate(time.Second)
	mk := func(updatedAt time.Time, status types.AttemptStatus) *types.CaseAttempt {
		cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)
		a := testutil.SeedAttempt(t, ctx, tx, cs.ID, student.ID)
		updates := map[string]any{"updated_at": updatedAt, "status": status}
		if status == types.AttemptCompleted {
			updates["completed_at"] = updatedAt
		}
		if err := repo.UpdateFields(dbc, a.ID, updates); err != nil {
			t.Fatalf("stamp attempt: %v", err)
		}
		return a
	}

	stale := mk(base.Add(-3*time.Hour), types.AttemptInProgress)
	recent := mk(base.Add(-1*time.Hour), types.AttemptInProgress)
	done := mk(base, types.AttemptCompleted)

	rows, err := svc.ListForUser(dbc, student.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListForUser returned %d rows, want 3", len(rows))
	}
	if rows[0].ID != recent.ID || rows[1].ID != stale.ID || rows[2].ID != done.ID {
		t.Fatalf("order = [%s %s %s], want [%s %s %s]",
			rows[0].ID, rows[1].ID, rows[2].ID, recent.ID, stale.ID, done.ID)
	}
	if rows[0].CaseTitle == "" {
		t.Fatalf("summary missing case title: %+v", rows[0])
	}
}

func TestProgressByCaseVisibility(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	owner := testutil.SeedProfessor(t, ctx, tx, "prof-progress@example.com")
	other := testutil.SeedProfessor(t, ctx, tx, "prof-other-progress@example.com")
	admin := testutil.SeedUser(t, ctx, tx, "admin-progress@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-progress@example.com")
	cs := testutil.SeedCase(t, ctx, tx, owner.ID, types.CasePublished)
	testutil.SeedAttempt(t, ctx, tx, cs.ID, student.ID)

	rows, err := svc.ProgressByCase(dbc, owner.ID, string(types.RoleProfessor), cs.ID)
	if err != nil {
		t.Fatalf("ProgressByCase (owner): %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != student.ID || rows[0].Username != student.Username {
		t.Fatalf("owner roster = %+v", rows)
	}

	_, err = svc.ProgressByCase(dbc, other.ID, string(types.RoleProfessor), cs.ID)
	wantAPIError(t, err, http.StatusNotFound, "NOT_FOUND")

	rows, err = svc.ProgressByCase(dbc, admin.ID, string(types.RoleAdmin), cs.ID)
	if err != nil {
		t.Fatalf("ProgressByCase (admin): %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("admin roster = %+v", rows)
	}
}

func TestAttemptLifecycleScenario(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	svc := newAttemptService(t, db)

	prof := testutil.SeedProfessor(t, ctx, tx, "prof-scenario@example.com")
	student := testutil.SeedUser(t, ctx, tx, "student-scenario@example.com")
	cs := testutil.SeedCase(t, ctx, tx, prof.ID, types.CasePublished)

	a1, err := svc.Ensure(dbc, student.ID, cs.ID, "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if a1.Status != types.AttemptInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", a1.Status)
	}

	if _, err := svc.Save(dbc, student.ID, a1.ID, "history", json.RawMessage(`{"cc":"blurry vision"}`), ""); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, already, err := svc.Complete(dbc, student.ID, a1.ID, ""); err != nil || already {
		t.Fatalf("complete: already=%v err=%v", already, err)
	}

	_, err = svc.Ensure(dbc, student.ID, cs.ID, "")
	ae := wantAPIError(t, err, http.StatusForbidden, "CASE_COMPLETED")
	got := completedAttemptFrom(t, ae)
	if got.ID != a1.ID {
		t.Fatalf("payload attempt = %s, want %s", got.ID, a1.ID)
	}
	sameJSON(t, got.HistoryJSON, `{"cc":"blurry vision"}`)
}
