package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExamSection holds the authored findings for one exam area of a case
// (entrance testing, refraction, slit lamp, posterior segment, and so on).
// Section identifiers are free text chosen by the author; ordering comes
// from Position.
type ExamSection struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_exam_section_case" json:"case_id"`
	Case     *Case          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Section  string         `gorm:"not null;column:section" json:"section"`
	Position int            `gorm:"not null;column:position" json:"position"`
	Findings datatypes.JSON `gorm:"column:findings" json:"findings"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExamSection) TableName() string { return "exam_section" }

func (s *ExamSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
