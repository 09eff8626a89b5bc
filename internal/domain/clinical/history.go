package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaseHistory is the authored intake history. One per case.
type CaseHistory struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`
	Case           *Case          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	HPI            string         `gorm:"column:hpi" json:"hpi"`
	MedicalHistory string         `gorm:"column:medical_history" json:"medical_history"`
	OcularHistory  string         `gorm:"column:ocular_history" json:"ocular_history"`
	FamilyHistory  string         `gorm:"column:family_history" json:"family_history"`
	Medications    string         `gorm:"column:medications" json:"medications"`
	Allergies      string         `gorm:"column:allergies" json:"allergies"`
	Social         datatypes.JSON `gorm:"column:social" json:"social"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CaseHistory) TableName() string { return "case_history" }

func (h *CaseHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
