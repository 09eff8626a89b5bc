package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type AssessmentPlanRepo interface {
	Create(dbc dbctx.Context, e *types.AssessmentPlanEntry) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentPlanEntry, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.AssessmentPlanEntry, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	CountByCase(dbc dbctx.Context, caseID uuid.UUID) (int64, error)
}

type assessmentPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentPlanRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentPlanRepo {
	return &assessmentPlanRepo{db: db, log: baseLog.With("repo", "AssessmentPlanRepo")}
}

func (r *assessmentPlanRepo) Create(dbc dbctx.Context, e *types.AssessmentPlanEntry) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if e == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(e).Error
}

func (r *assessmentPlanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentPlanEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.AssessmentPlanEntry
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *assessmentPlanRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.AssessmentPlanEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.AssessmentPlanEntry
	if caseID == uuid.Nil {
		return rows, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("case_id = ?", caseID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assessmentPlanRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.AssessmentPlanEntry{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *assessmentPlanRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.AssessmentPlanEntry{}).Error
}

func (r *assessmentPlanRepo) CountByCase(dbc dbctx.Context, caseID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if caseID == uuid.Nil {
		return 0, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.AssessmentPlanEntry{}).
		Where("case_id = ?", caseID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
