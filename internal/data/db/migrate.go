package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity + auth
		// =========================
		&types.User{},
		&types.UserToken{},

		// =========================
		// Authored case content
		// =========================
		&types.Case{},
		&types.Patient{},
		&types.Appointment{},
		&types.CaseHistory{},
		&types.ExamSection{},
		&types.PerformedTest{},
		&types.ImagingStudy{},
		&types.AssessmentPlanEntry{},

		// =========================
		// Student work
		// =========================
		&types.CaseAttempt{},
		&types.StudentNote{},
		&types.Interpretation{},
	)
}

// EnsureIndexes applies the raw DDL AutoMigrate does not express: partial
// unique indexes scoped to live rows. Both supported drivers accept this
// syntax.
func EnsureIndexes(db *gorm.DB) error {
	// One attempt per (case, student). The ensure path leans on this index
	// for its insert-on-conflict, so it must exist before traffic.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_case_attempt_case_user
		ON case_attempt(case_id, user_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_case_attempt_case_user: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_case_attempt_user_status
		ON case_attempt(user_id, status, updated_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_case_attempt_user_status: %w", err)
	}

	// One note per (attempt, section) and one interpretation per
	// (attempt, study); both upsert against these.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_student_note_attempt_section
		ON student_note(attempt_id, section)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_student_note_attempt_section: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_interpretation_attempt_study
		ON interpretation(attempt_id, imaging_study_id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_interpretation_attempt_study: %w", err)
	}

	// Case browse and authoring lists.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_clinical_case_status_published
		ON clinical_case(status, published_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_clinical_case_status_published: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_clinical_case_owner
		ON clinical_case(owner_id, status);
	`).Error; err != nil {
		return fmt.Errorf("create idx_clinical_case_owner: %w", err)
	}

	return nil
}
