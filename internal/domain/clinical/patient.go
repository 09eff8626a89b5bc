package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Patient is the demographic sheet for a case. One per case.
type Patient struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`
	Case        *Case          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	FirstName   string         `gorm:"column:first_name" json:"first_name"`
	LastName    string         `gorm:"column:last_name" json:"last_name"`
	DateOfBirth *time.Time     `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	Sex         string         `gorm:"column:sex" json:"sex"`
	Race        string         `gorm:"column:race" json:"race"`
	Occupation  string         `gorm:"column:occupation" json:"occupation"`
	Insurance   string         `gorm:"column:insurance" json:"insurance"`
	ReferredBy  string         `gorm:"column:referred_by" json:"referred_by"`
	Contact     datatypes.JSON `gorm:"column:contact" json:"contact"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Patient) TableName() string { return "patient" }

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
