package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type PerformedTestRepo interface {
	Create(dbc dbctx.Context, pt *types.PerformedTest) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PerformedTest, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.PerformedTest, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type performedTestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPerformedTestRepo(db *gorm.DB, baseLog *logger.Logger) PerformedTestRepo {
	return &performedTestRepo{db: db, log: baseLog.With("repo", "PerformedTestRepo")}
}

func (r *performedTestRepo) Create(dbc dbctx.Context, pt *types.PerformedTest) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if pt == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(pt).Error
}

func (r *performedTestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PerformedTest, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.PerformedTest
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

func (r *performedTestRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.PerformedTest, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.PerformedTest
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

func (r *performedTestRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
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
		Model(&types.PerformedTest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *performedTestRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.PerformedTest{}).Error
}
