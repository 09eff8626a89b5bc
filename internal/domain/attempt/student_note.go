package attempt

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentNote is the free-text scratchpad a student keeps per attempt
// section. One row per (attempt, section), upserted.
type StudentNote struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID uuid.UUID    `gorm:"type:uuid;not null;index" json:"attempt_id"`
	Attempt   *CaseAttempt `gorm:"constraint:OnDelete:CASCADE;foreignKey:AttemptID;references:ID" json:"attempt,omitempty"`
	Section   string       `gorm:"not null;column:section" json:"section"`
	Body      string       `gorm:"column:body" json:"body"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudentNote) TableName() string { return "student_note" }

func (n *StudentNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
