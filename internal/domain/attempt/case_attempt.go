package attempt

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/domain/clinical"
	"github.com/yungbote/optocase-backend/internal/domain/user"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Section names one of the independently saved content areas of an attempt.
type Section string

const (
	SectionHistory     Section = "history"
	SectionExam        Section = "exam"
	SectionAssessment  Section = "assessment"
	SectionPlan        Section = "plan"
	SectionAttachments Section = "attachments"
)

// DefaultLastPage is where a fresh attempt opens.
const DefaultLastPage = string(SectionHistory)

func ParseSection(raw string) (Section, bool) {
	s := Section(raw)
	switch s {
	case SectionHistory, SectionExam, SectionAssessment, SectionPlan, SectionAttachments:
		return s, true
	}
	return "", false
}

// CaseAttempt is a student's single engagement with one case. One row per
// (case, user); the pair is constraint-backed (see db.EnsureIndexes) so
// concurrent creates collapse onto a single row. A COMPLETED attempt is
// immutable: status never reverses and section writes are rejected.
type CaseAttempt struct {
	ID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID uuid.UUID      `gorm:"type:uuid;not null;index" json:"case_id"`
	Case   *clinical.Case `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	UserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *user.User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Status   Status `gorm:"not null;column:status;index" json:"status"`
	LastPage string `gorm:"column:last_page" json:"last_page"`

	// Per-section payloads. Opaque to the server and overwritten wholesale
	// on save; readers reconstruct rather than query into them.
	HistoryJSON     datatypes.JSON `gorm:"column:history_json" json:"history_json"`
	ExamJSON        datatypes.JSON `gorm:"column:exam_json" json:"exam_json"`
	AssessmentJSON  datatypes.JSON `gorm:"column:assessment_json" json:"assessment_json"`
	PlanJSON        datatypes.JSON `gorm:"column:plan_json" json:"plan_json"`
	AttachmentsJSON datatypes.JSON `gorm:"column:attachments_json" json:"attachments_json"`

	PDFURL      string     `gorm:"column:pdf_url" json:"pdf_url"`
	StartedAt   time.Time  `gorm:"not null;column:started_at" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CaseAttempt) TableName() string { return "case_attempt" }

func (a *CaseAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusInProgress
	}
	if a.LastPage == "" {
		a.LastPage = DefaultLastPage
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	return nil
}

func (a *CaseAttempt) Completed() bool {
	return a != nil && a.Status == StatusCompleted
}

// SectionColumn maps a section to its storage column. The save path builds
// its update set from this, so the mapping stays in one place.
func SectionColumn(s Section) (string, bool) {
	switch s {
	case SectionHistory:
		return "history_json", true
	case SectionExam:
		return "exam_json", true
	case SectionAssessment:
		return "assessment_json", true
	case SectionPlan:
		return "plan_json", true
	case SectionAttachments:
		return "attachments_json", true
	}
	return "", false
}
