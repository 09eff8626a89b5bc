package clinical

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type CaseHistoryRepo interface {
	Upsert(dbc dbctx.Context, h *types.CaseHistory) error
	GetByCaseID(dbc dbctx.Context, caseID uuid.UUID) (*types.CaseHistory, error)
}

type caseHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseHistoryRepo(db *gorm.DB, baseLog *logger.Logger) CaseHistoryRepo {
	return &caseHistoryRepo{db: db, log: baseLog.With("repo", "CaseHistoryRepo")}
}

func (r *caseHistoryRepo) Upsert(dbc dbctx.Context, h *types.CaseHistory) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if h == nil || h.CaseID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"hpi", "medical_history", "ocular_history", "family_history",
				"medications", "allergies", "social", "updated_at",
			}),
		}).
		Create(h).Error
}

func (r *caseHistoryRepo) GetByCaseID(dbc dbctx.Context, caseID uuid.UUID) (*types.CaseHistory, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if caseID == uuid.Nil {
		return nil, nil
	}
	var row types.CaseHistory
	if err := t.WithContext(dbc.Ctx).
		Where("case_id = ?", caseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
