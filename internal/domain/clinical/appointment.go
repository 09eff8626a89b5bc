package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment is the visit context a case is framed around. One per case.
type Appointment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`
	Case           *Case      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	OccurredOn     *time.Time `gorm:"column:occurred_on" json:"occurred_on,omitempty"`
	Reason         string     `gorm:"column:reason" json:"reason"`
	ChiefComplaint string     `gorm:"column:chief_complaint" json:"chief_complaint"`
	Notes          string     `gorm:"column:notes" json:"notes"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Appointment) TableName() string { return "appointment" }

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
