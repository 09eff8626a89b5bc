package clinical

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type AppointmentRepo interface {
	Upsert(dbc dbctx.Context, a *types.Appointment) error
	GetByCaseID(dbc dbctx.Context, caseID uuid.UUID) (*types.Appointment, error)
}

type appointmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAppointmentRepo(db *gorm.DB, baseLog *logger.Logger) AppointmentRepo {
	return &appointmentRepo{db: db, log: baseLog.With("repo", "AppointmentRepo")}
}

func (r *appointmentRepo) Upsert(dbc dbctx.Context, a *types.Appointment) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if a == nil || a.CaseID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"occurred_on", "reason", "chief_complaint", "notes", "updated_at",
			}),
		}).
		Create(a).Error
}

func (r *appointmentRepo) GetByCaseID(dbc dbctx.Context, caseID uuid.UUID) (*types.Appointment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if caseID == uuid.Nil {
		return nil, nil
	}
	var row types.Appointment
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
