package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImagingStudy is an uploaded media object (fundus photo, OCT, topography)
// attached to a case, optionally anchored to the performed test that
// produced it. ObjectKey addresses the storage provider; URL is what
// clients load.
type ImagingStudy struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"case_id"`
	Case            *Case          `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	PerformedTestID *uuid.UUID     `gorm:"type:uuid;index" json:"performed_test_id,omitempty"`
	PerformedTest   *PerformedTest `gorm:"constraint:OnDelete:SET NULL;foreignKey:PerformedTestID;references:ID" json:"performed_test,omitempty"`
	Kind            string         `gorm:"column:kind" json:"kind"`
	Label           string         `gorm:"column:label" json:"label"`
	ObjectKey       string         `gorm:"not null;column:object_key" json:"-"`
	ContentType     string         `gorm:"column:content_type" json:"content_type"`
	SizeBytes       int64          `gorm:"column:size_bytes" json:"size_bytes"`
	URL             string         `gorm:"column:url" json:"url"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ImagingStudy) TableName() string { return "imaging_study" }

func (s *ImagingStudy) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
