package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/avatar"
	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/storage"
)

const maxAvatarUploadBytes = 5 << 20

type AvatarService interface {
	// EnsureUserAvatar renders and uploads the initials avatar, filling the
	// user's AvatarKey/AvatarURL in place. Called during registration before
	// the user row is inserted.
	EnsureUserAvatar(dbc dbctx.Context, user *types.User) error
	// UpdateFromImage replaces the avatar with an uploaded picture.
	UpdateFromImage(dbc dbctx.Context, user *types.User, raw []byte) error
}

type avatarService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	renderer *avatar.Renderer
	store    storage.Provider
	notifier UserNotifier
}

func NewAvatarService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	renderer *avatar.Renderer,
	store storage.Provider,
	notifier UserNotifier,
) AvatarService {
	return &avatarService{
		db:       db,
		log:      baseLog.With("service", "AvatarService"),
		userRepo: userRepo,
		renderer: renderer,
		store:    store,
		notifier: notifier,
	}
}

func (s *avatarService) EnsureUserAvatar(dbc dbctx.Context, user *types.User) error {
	if user == nil || user.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}

	buf, err := s.renderer.Render(user.ID, user.Initials())
	if err != nil {
		return err
	}
	return s.swapAvatar(dbc, user, buf, false)
}

func (s *avatarService) UpdateFromImage(dbc dbctx.Context, user *types.User, raw []byte) error {
	if user == nil || user.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}
	if len(raw) > maxAvatarUploadBytes {
		return fmt.Errorf("avatar upload exceeds %d bytes", maxAvatarUploadBytes)
	}

	processed, err := avatar.ProcessUpload(raw, 512)
	if err != nil {
		return err
	}
	return s.swapAvatar(dbc, user, processed, true)
}

// swapAvatar uploads the new object, points the user at it, then best-effort
// deletes the old one. Order matters: the old object stays until the new one
// is live.
func (s *avatarService) swapAvatar(dbc dbctx.Context, user *types.User, buf bytes.Buffer, persist bool) error {
	oldKey := strings.TrimSpace(user.AvatarKey)

	// Versioned key so a CDN never serves a stale cached object.
	newKey := fmt.Sprintf("%s/%d.png", user.ID.String(), time.Now().UnixNano())

	if err := s.store.Put(dbc.Ctx, storage.CategoryAvatar, newKey, "image/png", bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}

	user.AvatarKey = newKey
	user.AvatarURL = s.store.PublicURL(storage.CategoryAvatar, newKey)

	if persist {
		if err := s.userRepo.UpdateFields(dbc, user.ID, map[string]any{
			"avatar_key": newKey,
			"avatar_url": user.AvatarURL,
		}); err != nil {
			return err
		}
		if s.notifier != nil {
			s.notifier.AvatarUpdated(user.ID, user.AvatarURL)
		}
	}

	if oldKey != "" && oldKey != newKey {
		if err := s.store.Delete(dbc.Ctx, storage.CategoryAvatar, oldKey); err != nil {
			s.log.Warn("failed to delete old avatar (ignored)", "oldKey", oldKey, "error", err)
		}
	}

	return nil
}
