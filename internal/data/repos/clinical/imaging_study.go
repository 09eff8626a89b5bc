package clinical

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type ImagingStudyRepo interface {
	Create(dbc dbctx.Context, s *types.ImagingStudy) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ImagingStudy, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.ImagingStudy, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type imagingStudyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImagingStudyRepo(db *gorm.DB, baseLog *logger.Logger) ImagingStudyRepo {
	return &imagingStudyRepo{db: db, log: baseLog.With("repo", "ImagingStudyRepo")}
}

func (r *imagingStudyRepo) Create(dbc dbctx.Context, s *types.ImagingStudy) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if s == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(s).Error
}

func (r *imagingStudyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ImagingStudy, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ImagingStudy
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

func (r *imagingStudyRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.ImagingStudy, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.ImagingStudy
	if caseID == uuid.Nil {
		return rows, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *imagingStudyRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.ImagingStudy{}).Error
}
