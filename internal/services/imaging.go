package services

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/storage"
)

const maxImagingUploadBytes = 20 << 20

// imagingContentTypes is what professors may attach to a case: photos and
// scan exports, plus PDF for instrument printouts.
var imagingContentTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type ImagingUploadInput struct {
	Filename        string
	ContentType     string
	Kind            string
	Label           string
	PerformedTestID *uuid.UUID
	Data            []byte
}

// ImagingService stores case media in the object store and tracks each
// upload as an ImagingStudy row. Keys live under cases/<caseID>/ so a case's
// objects can be swept together.
type ImagingService interface {
	Upload(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in ImagingUploadInput) (*types.ImagingStudy, error)
	List(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.ImagingStudy, error)
	Delete(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, studyID uuid.UUID) error
}

type imagingService struct {
	db          *gorm.DB
	log         *logger.Logger
	caseRepo    repos.CaseRepo
	testRepo    repos.PerformedTestRepo
	imagingRepo repos.ImagingStudyRepo
	store       storage.Provider
}

func NewImagingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	caseRepo repos.CaseRepo,
	testRepo repos.PerformedTestRepo,
	imagingRepo repos.ImagingStudyRepo,
	store storage.Provider,
) ImagingService {
	return &imagingService{
		db:          db,
		log:         baseLog.With("service", "ImagingService"),
		caseRepo:    caseRepo,
		testRepo:    testRepo,
		imagingRepo: imagingRepo,
		store:       store,
	}
}

func (s *imagingService) authorCase(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) (*types.Case, error) {
	if callerID == uuid.Nil || caseID == uuid.Nil {
		return nil, errCaseNotFound()
	}
	row, err := s.caseRepo.GetByID(dbc, caseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errCaseNotFound()
	}
	if row.OwnerID != callerID && callerRole != string(types.RoleAdmin) {
		return nil, errCaseNotFound()
	}
	return row, nil
}

func (s *imagingService) Upload(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID, in ImagingUploadInput) (*types.ImagingStudy, error) {
	row, err := s.authorCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST", fmt.Errorf("empty upload"))
	}
	if len(in.Data) > maxImagingUploadBytes {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
			fmt.Errorf("upload exceeds %d bytes", maxImagingUploadBytes))
	}

	ct := normalizeContentType(in.ContentType)
	ext, ok := imagingContentTypes[ct]
	if !ok {
		return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST",
			fmt.Errorf("unsupported content type %q", in.ContentType))
	}

	var testID *uuid.UUID
	if in.PerformedTestID != nil && *in.PerformedTestID != uuid.Nil {
		pt, err := s.testRepo.GetByID(dbc, *in.PerformedTestID)
		if err != nil {
			return nil, err
		}
		if pt == nil || pt.CaseID != row.ID {
			return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST",
				fmt.Errorf("performed test does not belong to this case"))
		}
		testID = in.PerformedTestID
	}

	key := fmt.Sprintf("cases/%s/%s%s", row.ID.String(), uuid.New().String(), ext)
	if err := s.store.Put(dbc.Ctx, storage.CategoryImaging, key, ct, bytes.NewReader(in.Data)); err != nil {
		return nil, fmt.Errorf("store imaging object: %w", err)
	}

	study := &types.ImagingStudy{
		ID:              uuid.New(),
		CaseID:          row.ID,
		PerformedTestID: testID,
		Kind:            strings.TrimSpace(in.Kind),
		Label:           labelOrFilename(in.Label, in.Filename),
		ObjectKey:       key,
		ContentType:     ct,
		SizeBytes:       int64(len(in.Data)),
		URL:             s.store.PublicURL(storage.CategoryImaging, key),
	}
	if err := s.imagingRepo.Create(dbc, study); err != nil {
		// Row insert failed after the object landed; reclaim the object so
		// the bucket does not accumulate orphans.
		if delErr := s.store.Delete(dbc.Ctx, storage.CategoryImaging, key); delErr != nil {
			s.log.Warn("failed to delete orphaned imaging object (ignored)", "key", key, "error", delErr)
		}
		return nil, err
	}

	s.log.Info("imaging uploaded", "case_id", row.ID, "study_id", study.ID, "bytes", study.SizeBytes)
	if m := observability.Current(); m != nil {
		m.IncUpload("imaging")
	}
	return study, nil
}

func (s *imagingService) List(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*types.ImagingStudy, error) {
	row, err := s.authorCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return nil, err
	}
	return s.imagingRepo.ListByCase(dbc, row.ID)
}

func (s *imagingService) Delete(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID, studyID uuid.UUID) error {
	row, err := s.authorCase(dbc, callerID, callerRole, caseID)
	if err != nil {
		return err
	}
	study, err := s.imagingRepo.GetByID(dbc, studyID)
	if err != nil {
		return err
	}
	if study == nil || study.CaseID != row.ID {
		return errCaseNotFound()
	}
	if err := s.imagingRepo.Delete(dbc, study.ID); err != nil {
		return err
	}
	if err := s.store.Delete(dbc.Ctx, storage.CategoryImaging, study.ObjectKey); err != nil {
		s.log.Warn("failed to delete imaging object (ignored)", "key", study.ObjectKey, "error", err)
	}
	return nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func labelOrFilename(label, filename string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	if f := strings.TrimSpace(filename); f != "" {
		return filepath.Base(f)
	}
	return ""
}
