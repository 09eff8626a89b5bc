package attempt

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type StudentNoteRepo interface {
	// Upsert writes the note for (attempt_id, section), replacing the body
	// when one already exists.
	Upsert(dbc dbctx.Context, n *types.StudentNote) error
	GetByAttemptAndSection(dbc dbctx.Context, attemptID uuid.UUID, section types.AttemptSection) (*types.StudentNote, error)
	ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.StudentNote, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type studentNoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentNoteRepo(db *gorm.DB, baseLog *logger.Logger) StudentNoteRepo {
	return &studentNoteRepo{db: db, log: baseLog.With("repo", "StudentNoteRepo")}
}

func (r *studentNoteRepo) Upsert(dbc dbctx.Context, n *types.StudentNote) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if n == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "section"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "deleted_at IS NULL"},
			}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(n).Error
}

func (r *studentNoteRepo) GetByAttemptAndSection(dbc dbctx.Context, attemptID uuid.UUID, section types.AttemptSection) (*types.StudentNote, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if attemptID == uuid.Nil {
		return nil, nil
	}
	var row types.StudentNote
	if err := t.WithContext(dbc.Ctx).
		Where("attempt_id = ? AND section = ?", attemptID, section).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *studentNoteRepo) ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.StudentNote, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.StudentNote
	if attemptID == uuid.Nil {
		return rows, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("attempt_id = ?", attemptID).
		Order("section ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *studentNoteRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.StudentNote{}).Error
}
