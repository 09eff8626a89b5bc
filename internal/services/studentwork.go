package services

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// StudentWorkService handles the side artifacts of an attempt: per-section
// scratch notes and written readings of imaging studies. Writes obey the
// same completion lock as attempt saves; reads stay open so completed work
// can be reviewed.
type StudentWorkService interface {
	SaveNote(dbc dbctx.Context, userID, attemptID uuid.UUID, section, body string) (*types.StudentNote, error)
	ListNotes(dbc dbctx.Context, userID, attemptID uuid.UUID) ([]*types.StudentNote, error)
	SaveInterpretation(dbc dbctx.Context, userID, attemptID, studyID uuid.UUID, body string) (*types.Interpretation, error)
	ListInterpretations(dbc dbctx.Context, userID, attemptID uuid.UUID) ([]*types.Interpretation, error)
}

type studentWorkService struct {
	db          *gorm.DB
	log         *logger.Logger
	attemptRepo repos.CaseAttemptRepo
	noteRepo    repos.StudentNoteRepo
	interpRepo  repos.InterpretationRepo
	imagingRepo repos.ImagingStudyRepo
}

func NewStudentWorkService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attemptRepo repos.CaseAttemptRepo,
	noteRepo repos.StudentNoteRepo,
	interpRepo repos.InterpretationRepo,
	imagingRepo repos.ImagingStudyRepo,
) StudentWorkService {
	return &studentWorkService{
		db:          db,
		log:         baseLog.With("service", "StudentWorkService"),
		attemptRepo: attemptRepo,
		noteRepo:    noteRepo,
		interpRepo:  interpRepo,
		imagingRepo: imagingRepo,
	}
}

func (s *studentWorkService) ownedAttempt(dbc dbctx.Context, userID, attemptID uuid.UUID) (*types.CaseAttempt, error) {
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

func (s *studentWorkService) SaveNote(dbc dbctx.Context, userID, attemptID uuid.UUID, section, body string) (*types.StudentNote, error) {
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

	note := &types.StudentNote{
		ID:        uuid.New(),
		AttemptID: row.ID,
		Section:   string(sec),
		Body:      body,
	}
	if err := s.noteRepo.Upsert(dbc, note); err != nil {
		return nil, err
	}
	// The upsert may have landed on a pre-existing row; read back so the
	// caller sees the stored ids and timestamps.
	stored, err := s.noteRepo.GetByAttemptAndSection(dbc, row.ID, sec)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return note, nil
}

func (s *studentWorkService) ListNotes(dbc dbctx.Context, userID, attemptID uuid.UUID) ([]*types.StudentNote, error) {
	row, err := s.ownedAttempt(dbc, userID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.noteRepo.ListByAttempt(dbc, row.ID)
}

func (s *studentWorkService) SaveInterpretation(dbc dbctx.Context, userID, attemptID, studyID uuid.UUID, body string) (*types.Interpretation, error) {
	row, err := s.ownedAttempt(dbc, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if row.Completed() {
		return nil, errCaseCompleted(row)
	}
	study, err := s.imagingRepo.GetByID(dbc, studyID)
	if err != nil {
		return nil, err
	}
	if study == nil || study.CaseID != row.CaseID {
		return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST",
			fmt.Errorf("imaging study does not belong to this case"))
	}

	it := &types.Interpretation{
		ID:             uuid.New(),
		AttemptID:      row.ID,
		ImagingStudyID: study.ID,
		Body:           body,
	}
	if err := s.interpRepo.Upsert(dbc, it); err != nil {
		return nil, err
	}
	stored, err := s.interpRepo.GetByAttemptAndStudy(dbc, row.ID, study.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return it, nil
}

func (s *studentWorkService) ListInterpretations(dbc dbctx.Context, userID, attemptID uuid.UUID) ([]*types.Interpretation, error) {
	row, err := s.ownedAttempt(dbc, userID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.interpRepo.ListByAttempt(dbc, row.ID)
}
