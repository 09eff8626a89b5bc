package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type CaseRepo interface {
	Create(dbc dbctx.Context, c *types.Case) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Case, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, status types.CaseStatus) ([]*types.Case, error)
	ListPublished(dbc dbctx.Context) ([]*types.Case, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type caseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	return &caseRepo{db: db, log: baseLog.With("repo", "CaseRepo")}
}

func (r *caseRepo) Create(dbc dbctx.Context, c *types.Case) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if c == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(c).Error
}

func (r *caseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Case, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Case
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

func (r *caseRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, status types.CaseStatus) ([]*types.Case, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.Case
	if ownerID == uuid.Nil {
		return rows, nil
	}
	q := t.WithContext(dbc.Ctx).Where("owner_id = ?", ownerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *caseRepo) ListPublished(dbc dbctx.Context) ([]*types.Case, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.Case
	if err := t.WithContext(dbc.Ctx).
		Where("status = ?", types.CasePublished).
		Order("published_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *caseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
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
		Model(&types.Case{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *caseRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Case{}).Error
}
