package attempt

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/domain/clinical"
)

// Interpretation is a student's written reading of one imaging study within
// an attempt. One row per (attempt, imaging study), upserted.
type Interpretation struct {
	ID             uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID      uuid.UUID              `gorm:"type:uuid;not null;index" json:"attempt_id"`
	Attempt        *CaseAttempt           `gorm:"constraint:OnDelete:CASCADE;foreignKey:AttemptID;references:ID" json:"attempt,omitempty"`
	ImagingStudyID uuid.UUID              `gorm:"type:uuid;not null;index" json:"imaging_study_id"`
	ImagingStudy   *clinical.ImagingStudy `gorm:"constraint:OnDelete:CASCADE;foreignKey:ImagingStudyID;references:ID" json:"imaging_study,omitempty"`
	Body           string                 `gorm:"column:body" json:"body"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Interpretation) TableName() string { return "interpretation" }

func (i *Interpretation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
