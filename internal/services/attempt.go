package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/events"
	"github.com/yungbote/optocase-backend/internal/mail"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// AttemptService owns the attempt lifecycle: NONE -> IN_PROGRESS ->
// COMPLETED, two transitions, no cycles. Identity always arrives as an
// explicit userID; nothing here reads ambient session state.
type AttemptService interface {
	// Ensure returns the caller's attempt for the case, creating it when
	// none exists. A COMPLETED attempt fails with CASE_COMPLETED and the
	// existing row in the error payload.
	Ensure(dbc dbctx.Context, userID, caseID uuid.UUID, lastPage string) (*types.CaseAttempt, error)
	// GuardByCase is the read-only variant: same CASE_COMPLETED contract,
	// but never creates a row. Returns nil when no attempt exists.
	GuardByCase(dbc dbctx.Context, userID, caseID uuid.UUID) (*types.CaseAttempt, error)
	// Save overwrites one section payload wholesale. Last write wins; no
	// merge, no versioning.
	Save(dbc dbctx.Context, userID, attemptID uuid.UUID, section string, data json.RawMessage, lastPage string) (*types.CaseAttempt, error)
	// Complete is the terminal transition. Calling it again reports
	// alreadyCompleted without touching the row.
	Complete(dbc dbctx.Context, userID, attemptID uuid.UUID, pdfURL string) (attempt *types.CaseAttempt, alreadyCompleted bool, err error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*repos.AttemptSummary, error)
	// ProgressByCase is the instructor view: every student's attempt on one
	// of the caller's cases.
	ProgressByCase(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*repos.CaseProgressRow, error)
}

type attemptService struct {
	db          *gorm.DB
	log         *logger.Logger
	caseRepo    repos.CaseRepo
	attemptRepo repos.CaseAttemptRepo
	userRepo    repos.UserRepo
	notifier    AttemptNotifier
	publisher   events.Publisher
	mailer      mail.Mailer
}

func NewAttemptService(
	db *gorm.DB,
	baseLog *logger.Logger,
	caseRepo repos.CaseRepo,
	attemptRepo repos.CaseAttemptRepo,
	userRepo repos.UserRepo,
	notifier AttemptNotifier,
	publisher events.Publisher,
	mailer mail.Mailer,
) AttemptService {
	return &attemptService{
		db:          db,
		log:         baseLog.With("service", "AttemptService"),
		caseRepo:    caseRepo,
		attemptRepo: attemptRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		publisher:   publisher,
		mailer:      mailer,
	}
}

func errCaseCompleted(a *types.CaseAttempt) error {
	return apierr.New(http.StatusForbidden, "CASE_COMPLETED", fmt.Errorf("case already completed")).
		WithPayload(map[string]any{"attempt": a})
}

func errAttemptNotFound() error {
	// Not-found and not-owner collapse into one code so attempt ids cannot
	// be probed for existence.
	return apierr.New(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("attempt not found"))
}

func (s *attemptService) Ensure(dbc dbctx.Context, userID, caseID uuid.UUID, lastPage string) (*types.CaseAttempt, error) {
	if userID == uuid.Nil || caseID == uuid.Nil {
		return nil, errAttemptNotFound()
	}

	cs, err := s.caseRepo.GetByID(dbc, caseID)
	if err != nil {
		return nil, err
	}
	// Only published cases are workable. Drafts stay invisible to students,
	// so the miss is indistinguishable from a nonexistent case.
	if cs == nil || cs.Status != types.CasePublished {
		return nil, apierr.New(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("case not found"))
	}

	lastPage = strings.TrimSpace(lastPage)
	fresh := &types.CaseAttempt{
		ID:       uuid.New(),
		CaseID:   caseID,
		UserID:   userID,
		Status:   types.AttemptInProgress,
		LastPage: lastPage,
	}
	row, created, err := s.attemptRepo.EnsureInProgress(dbc, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("attempt started", "attempt_id", row.ID, "case_id", caseID, "user_id", userID)
		if m := observability.Current(); m != nil {
			m.IncAttemptEnsured()
		}
		if s.notifier != nil {
			s.notifier.AttemptEnsured(row)
		}
		s.publish(dbc, events.TypeAttemptEnsured, row, nil)
		return row, nil
	}

	if row.Completed() {
		return nil, errCaseCompleted(row)
	}
	// Returning to work in progress: move the cursor when the client sent
	// one, otherwise hand the row back untouched.
	if lastPage != "" && lastPage != row.LastPage {
		if err := s.attemptRepo.UpdateFields(dbc, row.ID, map[string]any{"last_page": lastPage}); err != nil {
			return nil, err
		}
		row.LastPage = lastPage
	}
	return row, nil
}

func (s *attemptService) GuardByCase(dbc dbctx.Context, userID, caseID uuid.UUID) (*types.CaseAttempt, error) {
	if userID == uuid.Nil || caseID == uuid.Nil {
		return nil, nil
	}
	row, err := s.attemptRepo.GetByCaseAndUser(dbc, caseID, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	if row.Completed() {
		return nil, errCaseCompleted(row)
	}
	return row, nil
}

func (s *attemptService) Save(dbc dbctx.Context, userID, attemptID uuid.UUID, section string, data json.RawMessage, lastPage string) (*types.CaseAttempt, error) {
	row, err := s.ownedAttempt(dbc, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if row.Completed() {
		return nil, errCaseCompleted(row)
	}

	sec, ok := types.ParseSection(strings.TrimSpace(section))
	if !ok {
		return nil, apierr.New(http.StatusBadRequest, "BAD_SECTION", fmt.Errorf("unknown section %q", section))
	}
	column, _ := types.SectionColumn(sec)

	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	updates := map[string]any{column: datatypes.JSON(data)}
	lastPage = strings.TrimSpace(lastPage)
	if lastPage != "" {
		updates["last_page"] = lastPage
		row.LastPage = lastPage
	}
	if err := s.attemptRepo.UpdateFields(dbc, row.ID, updates); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.AttemptSaved(row, sec)
	}
	return row, nil
}

func (s *attemptService) Complete(dbc dbctx.Context, userID, attemptID uuid.UUID, pdfURL string) (*types.CaseAttempt, bool, error) {
	row, err := s.ownedAttempt(dbc, userID, attemptID)
	if err != nil {
		return nil, false, err
	}
	if row.Completed() {
		// Idempotent: the second submit is a no-op, not an error.
		return row, true, nil
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       types.AttemptCompleted,
		"completed_at": now,
		"updated_at":   now,
	}
	pdfURL = strings.TrimSpace(pdfURL)
	if pdfURL != "" {
		updates["pdf_url"] = pdfURL
	}
	if err := s.attemptRepo.UpdateFields(dbc, row.ID, updates); err != nil {
		return nil, false, err
	}
	row.Status = types.AttemptCompleted
	row.CompletedAt = &now
	row.UpdatedAt = now
	if pdfURL != "" {
		row.PDFURL = pdfURL
	}

	s.log.Info("attempt completed", "attempt_id", row.ID, "case_id", row.CaseID, "user_id", userID)
	if m := observability.Current(); m != nil {
		m.IncAttemptCompleted()
	}
	if s.notifier != nil {
		s.notifier.AttemptCompleted(row)
	}
	s.publish(dbc, events.TypeAttemptCompleted, row, map[string]any{"pdf_url": row.PDFURL})
	if s.mailer != nil {
		u, uerr := s.userRepo.GetByID(dbc, row.UserID)
		cs, cerr := s.caseRepo.GetByID(dbc, row.CaseID)
		if uerr == nil && cerr == nil {
			s.mailer.SendCompletionReceipt(dbc.Ctx, u, cs, row)
		}
	}
	return row, false, nil
}

func (s *attemptService) ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*repos.AttemptSummary, error) {
	return s.attemptRepo.ListSummariesForUser(dbc, userID)
}

func (s *attemptService) ProgressByCase(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*repos.CaseProgressRow, error) {
	cs, err := s.caseRepo.GetByID(dbc, caseID)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, apierr.New(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("case not found"))
	}
	// Owners see their own roster; admins see any. Everyone else gets the
	// same NOT_FOUND a nonexistent case would give.
	if cs.OwnerID != callerID && callerRole != string(types.RoleAdmin) {
		return nil, apierr.New(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("case not found"))
	}
	return s.attemptRepo.ListProgressByCase(dbc, caseID)
}

// ownedAttempt resolves an attempt the caller owns, collapsing both misses
// into NOT_FOUND.
func (s *attemptService) ownedAttempt(dbc dbctx.Context, userID, attemptID uuid.UUID) (*types.CaseAttempt, error) {
	if userID == uuid.Nil || attemptID == uuid.Nil {
		return nil, errAttemptNotFound()
	}
	row, err := s.attemptRepo.GetByID(dbc, attemptID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.UserID != userID {
		return nil, errAttemptNotFound()
	}
	return row, nil
}

func (s *attemptService) publish(dbc dbctx.Context, typ events.Type, a *types.CaseAttempt, extra map[string]any) {
	if s.publisher == nil || a == nil {
		return
	}
	payload := map[string]any{
		"attempt_id": a.ID,
		"case_id":    a.CaseID,
		"user_id":    a.UserID,
		"status":     a.Status,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.publisher.Publish(dbc.Ctx, events.Event{
		Type:    typ,
		Key:     a.CaseID.String(),
		ActorID: a.UserID,
		Payload: payload,
	}); err != nil {
		s.log.Warn("publish attempt event failed", "type", typ, "error", err)
	}
}
