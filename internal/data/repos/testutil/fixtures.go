package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     email,
		PasswordHash: "x",
		Role:         types.RoleStudent,
		FirstName:    "A",
		LastName:     "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProfessor(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, email)
	if err := tx.WithContext(ctx).Model(u).Update("role", types.RoleProfessor).Error; err != nil {
		tb.Fatalf("seed professor: %v", err)
	}
	u.Role = types.RoleProfessor
	return u
}

func SeedCase(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, status types.CaseStatus) *types.Case {
	tb.Helper()
	c := &types.Case{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Title:      fmt.Sprintf("case-%s", uuid.NewString()[:8]),
		Difficulty: types.DifficultyIntroductory,
		Status:     status,
		Tags:       datatypes.JSON([]byte(`[]`)),
	}
	if status == types.CasePublished {
		c.PublishedAt = PtrTime(time.Now().UTC())
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed case: %v", err)
	}
	return c
}

func SeedPatient(tb testing.TB, ctx context.Context, tx *gorm.DB, caseID uuid.UUID) *types.Patient {
	tb.Helper()
	p := &types.Patient{
		ID:        uuid.New(),
		CaseID:    caseID,
		FirstName: "Pat",
		LastName:  "Ient",
		Sex:       "F",
		Contact:   datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed patient: %v", err)
	}
	return p
}

func SeedExamSection(tb testing.TB, ctx context.Context, tx *gorm.DB, caseID uuid.UUID, section string, position int) *types.ExamSection {
	tb.Helper()
	s := &types.ExamSection{
		ID:       uuid.New(),
		CaseID:   caseID,
		Section:  section,
		Position: position,
		Findings: datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed exam section: %v", err)
	}
	return s
}

func SeedImagingStudy(tb testing.TB, ctx context.Context, tx *gorm.DB, caseID uuid.UUID, kind string) *types.ImagingStudy {
	tb.Helper()
	st := &types.ImagingStudy{
		ID:          uuid.New(),
		CaseID:      caseID,
		Kind:        kind,
		Label:       kind,
		ObjectKey:   fmt.Sprintf("cases/%s/%s", caseID, uuid.NewString()),
		ContentType: "image/png",
	}
	if err := tx.WithContext(ctx).Create(st).Error; err != nil {
		tb.Fatalf("seed imaging study: %v", err)
	}
	return st
}

func SeedAssessmentEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, caseID uuid.UUID, position int) *types.AssessmentPlanEntry {
	tb.Helper()
	e := &types.AssessmentPlanEntry{
		ID:            uuid.New(),
		CaseID:        caseID,
		Position:      position,
		DiagnosisText: "dx",
		PlanText:      "plan",
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed assessment entry: %v", err)
	}
	return e
}

func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, caseID, userID uuid.UUID) *types.CaseAttempt {
	tb.Helper()
	a := &types.CaseAttempt{
		ID:        uuid.New(),
		CaseID:    caseID,
		UserID:    userID,
		Status:    types.AttemptInProgress,
		LastPage:  types.DefaultLastPage,
		StartedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
