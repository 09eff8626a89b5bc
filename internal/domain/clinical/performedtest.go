package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Eye string

const (
	EyeOD Eye = "OD"
	EyeOS Eye = "OS"
	EyeOU Eye = "OU"
)

// PerformedTest records a diagnostic test run during the visit, usually the
// anchor for one or more imaging studies.
type PerformedTest struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID   uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	Case     *Case     `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Name     string    `gorm:"not null;column:name" json:"name"`
	Eye      Eye       `gorm:"column:eye" json:"eye"`
	Notes    string    `gorm:"column:notes" json:"notes"`
	Position int       `gorm:"not null;column:position" json:"position"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PerformedTest) TableName() string { return "performed_test" }

func (t *PerformedTest) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
