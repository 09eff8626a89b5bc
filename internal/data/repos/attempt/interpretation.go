package attempt

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type InterpretationRepo interface {
	// Upsert writes the interpretation for (attempt_id, imaging_study_id),
	// replacing the body when one already exists.
	Upsert(dbc dbctx.Context, it *types.Interpretation) error
	GetByAttemptAndStudy(dbc dbctx.Context, attemptID, studyID uuid.UUID) (*types.Interpretation, error)
	ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.Interpretation, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type interpretationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterpretationRepo(db *gorm.DB, baseLog *logger.Logger) InterpretationRepo {
	return &interpretationRepo{db: db, log: baseLog.With("repo", "InterpretationRepo")}
}

func (r *interpretationRepo) Upsert(dbc dbctx.Context, it *types.Interpretation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if it == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "imaging_study_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "deleted_at IS NULL"},
			}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(it).Error
}

func (r *interpretationRepo) GetByAttemptAndStudy(dbc dbctx.Context, attemptID, studyID uuid.UUID) (*types.Interpretation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if attemptID == uuid.Nil || studyID == uuid.Nil {
		return nil, nil
	}
	var row types.Interpretation
	if err := t.WithContext(dbc.Ctx).
		Where("attempt_id = ? AND imaging_study_id = ?", attemptID, studyID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *interpretationRepo) ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.Interpretation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.Interpretation
	if attemptID == uuid.Nil {
		return rows, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *interpretationRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Interpretation{}).Error
}
