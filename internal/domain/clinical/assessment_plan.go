package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssessmentPlanEntry is one line of the authored answer key: a diagnosis
// code plus the matching plan text, position-ordered.
type AssessmentPlanEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID        uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	Case          *Case     `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Position      int       `gorm:"not null;column:position" json:"position"`
	DiagnosisCode string    `gorm:"column:diagnosis_code" json:"diagnosis_code"`
	DiagnosisText string    `gorm:"column:diagnosis_text" json:"diagnosis_text"`
	PlanText      string    `gorm:"column:plan_text" json:"plan_text"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AssessmentPlanEntry) TableName() string { return "assessment_plan_entry" }

func (e *AssessmentPlanEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
