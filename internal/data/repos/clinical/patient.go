package clinical

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type PatientRepo interface {
	Upsert(dbc dbctx.Context, p *types.Patient) error
	GetByCaseID(dbc dbctx.Context, caseID uuid.UUID) (*types.Patient, error)
}

type patientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatientRepo(db *gorm.DB, baseLog *logger.Logger) PatientRepo {
	return &patientRepo{db: db, log: baseLog.With("repo", "PatientRepo")}
}

// Upsert keys on case_id; a second write replaces the sheet in place.
func (r *patientRepo) Upsert(dbc dbctx.Context, p *types.Patient) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if p == nil || p.CaseID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"first_name", "last_name", "date_of_birth", "sex", "race",
				"occupation", "insurance", "referred_by", "contact", "updated_at",
			}),
		}).
		Create(p).Error
}

func (r *patientRepo) GetByCaseID(dbc dbctx.Context, caseID uuid.UUID) (*types.Patient, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if caseID == uuid.Nil {
		return nil, nil
	}
	var row types.Patient
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
