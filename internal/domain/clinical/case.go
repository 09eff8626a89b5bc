package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/domain/user"
)

type CaseStatus string

const (
	CaseDraft     CaseStatus = "DRAFT"
	CasePublished CaseStatus = "PUBLISHED"
	CaseArchived  CaseStatus = "ARCHIVED"
)

type Difficulty string

const (
	DifficultyIntroductory Difficulty = "introductory"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Case is a professor-authored clinical scenario. Students only ever see
// PUBLISHED cases; authoring stays visible to the owner alone.
type Case struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner       *user.User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	Title       string         `gorm:"not null;column:title" json:"title"`
	Summary     string         `gorm:"column:summary" json:"summary"`
	Difficulty  Difficulty     `gorm:"column:difficulty" json:"difficulty"`
	Status      CaseStatus     `gorm:"not null;column:status;index" json:"status"`
	PublishedAt *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	Tags        datatypes.JSON `gorm:"column:tags" json:"tags"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Case) TableName() string { return "clinical_case" }

func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CaseDraft
	}
	return nil
}
