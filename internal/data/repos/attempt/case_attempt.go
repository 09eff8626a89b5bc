package attempt

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// AttemptSummary is the list-view projection, one row per attempt with the
// case title joined in so clients do not need a second round trip.
type AttemptSummary struct {
	ID          uuid.UUID           `json:"id"`
	CaseID      uuid.UUID           `json:"case_id"`
	CaseTitle   string              `json:"case_title"`
	Status      types.AttemptStatus `json:"status"`
	LastPage    string              `json:"last_page"`
	PDFURL      string              `json:"pdf_url,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CaseProgressRow is the instructor-side projection: one row per student
// attempt on a given case.
type CaseProgressRow struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	Username    string              `json:"username"`
	Status      types.AttemptStatus `json:"status"`
	LastPage    string              `json:"last_page"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type CaseAttemptRepo interface {
	// EnsureInProgress inserts the attempt unless a live one already exists
	// for (case_id, user_id). It returns the surviving row and whether this
	// call created it. The insert races safely against concurrent calls
	// because ON CONFLICT targets the partial unique index on live rows.
	EnsureInProgress(dbc dbctx.Context, a *types.CaseAttempt) (*types.CaseAttempt, bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CaseAttempt, error)
	GetByCaseAndUser(dbc dbctx.Context, caseID, userID uuid.UUID) (*types.CaseAttempt, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	ListSummariesForUser(dbc dbctx.Context, userID uuid.UUID) ([]*AttemptSummary, error)
	ListProgressByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*CaseProgressRow, error)
	CountCompletedForUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type caseAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseAttemptRepo(db *gorm.DB, baseLog *logger.Logger) CaseAttemptRepo {
	return &caseAttemptRepo{db: db, log: baseLog.With("repo", "CaseAttemptRepo")}
}

func (r *caseAttemptRepo) EnsureInProgress(dbc dbctx.Context, a *types.CaseAttempt) (*types.CaseAttempt, bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if a == nil {
		return nil, false, nil
	}
	// The conflict target must name the partial index predicate, otherwise
	// postgres refuses to match the index and the insert errors out.
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "case_id"}, {Name: "user_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "deleted_at IS NULL"},
			}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return a, true, nil
	}
	// Lost the race or the attempt already existed. Either way the surviving
	// row is the answer.
	existing, err := r.GetByCaseAndUser(dbc, a.CaseID, a.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *caseAttemptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CaseAttempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.CaseAttempt
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

func (r *caseAttemptRepo) GetByCaseAndUser(dbc dbctx.Context, caseID, userID uuid.UUID) (*types.CaseAttempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if caseID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	var row types.CaseAttempt
	if err := t.WithContext(dbc.Ctx).
		Where("case_id = ? AND user_id = ?", caseID, userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *caseAttemptRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
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
		Model(&types.CaseAttempt{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *caseAttemptRepo) ListSummariesForUser(dbc dbctx.Context, userID uuid.UUID) ([]*AttemptSummary, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*AttemptSummary
	if userID == uuid.Nil {
		return rows, nil
	}
	// In-progress work sorts ahead of finished work, most recently touched
	// first inside each group.
	if err := t.WithContext(dbc.Ctx).
		Table("case_attempt").
		Select(`case_attempt.id,
			case_attempt.case_id,
			clinical_case.title AS case_title,
			case_attempt.status,
			case_attempt.last_page,
			case_attempt.pdf_url,
			case_attempt.started_at,
			case_attempt.completed_at,
			case_attempt.updated_at`).
		Joins("JOIN clinical_case ON clinical_case.id = case_attempt.case_id").
		Where("case_attempt.user_id = ? AND case_attempt.deleted_at IS NULL", userID).
		Order("CASE WHEN case_attempt.status = 'IN_PROGRESS' THEN 0 ELSE 1 END, case_attempt.updated_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *caseAttemptRepo) ListProgressByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*CaseProgressRow, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*CaseProgressRow
	if caseID == uuid.Nil {
		return rows, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Table("case_attempt").
		Select(`case_attempt.id,
			case_attempt.user_id,
			"user".username AS username,
			case_attempt.status,
			case_attempt.last_page,
			case_attempt.started_at,
			case_attempt.completed_at,
			case_attempt.updated_at`).
		Joins(`JOIN "user" ON "user".id = case_attempt.user_id`).
		Where("case_attempt.case_id = ? AND case_attempt.deleted_at IS NULL", caseID).
		Order("case_attempt.updated_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *caseAttemptRepo) CountCompletedForUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	if userID == uuid.Nil {
		return 0, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.CaseAttempt{}).
		Where("user_id = ? AND status = ?", userID, types.AttemptCompleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
