package services

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/platform/validate"
)

type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=40,alphanum"`
}

type ChangePasswordInput struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required,min=8,max=128"`
}

// UserService is the self-service profile surface: name and username edits,
// avatar replacement, password changes.
type UserService interface {
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(dbc dbctx.Context, userID uuid.UUID, in UpdateProfileInput) (*types.User, error)
	UploadAvatar(dbc dbctx.Context, userID uuid.UUID, raw []byte) (*types.User, error)
	ChangePassword(dbc dbctx.Context, userID uuid.UUID, in ChangePasswordInput) error
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	avatarService AvatarService
}

func NewUserService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	avatarService AvatarService,
) UserService {
	return &userService{
		db:            db,
		log:           baseLog.With("service", "UserService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		avatarService: avatarService,
	}
}

func errUserNotFound() error {
	return apierr.New(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("user not found"))
}

func (s *userService) Get(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	if userID == uuid.Nil {
		return nil, errUserNotFound()
	}
	row, err := s.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errUserNotFound()
	}
	return row, nil
}

func (s *userService) UpdateProfile(dbc dbctx.Context, userID uuid.UUID, in UpdateProfileInput) (*types.User, error) {
	row, err := s.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, badRequest(err)
	}

	updates := map[string]any{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
		row.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
		row.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Username != nil {
		uname := strings.ToLower(strings.TrimSpace(*in.Username))
		if uname != row.Username {
			taken, err := s.userRepo.UsernameExists(dbc, uname)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apierr.New(http.StatusConflict, "USERNAME_TAKEN", fmt.Errorf("username already taken"))
			}
			updates["username"] = uname
			row.Username = uname
		}
	}
	if len(updates) == 0 {
		return row, nil
	}
	if err := s.userRepo.UpdateFields(dbc, row.ID, updates); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *userService) UploadAvatar(dbc dbctx.Context, userID uuid.UUID, raw []byte) (*types.User, error) {
	row, err := s.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST", fmt.Errorf("empty upload"))
	}
	if err := s.avatarService.UpdateFromImage(dbc, row, raw); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "BAD_REQUEST", err)
	}
	if m := observability.Current(); m != nil {
		m.IncUpload("avatar")
	}
	return row, nil
}

func (s *userService) ChangePassword(dbc dbctx.Context, userID uuid.UUID, in ChangePasswordInput) error {
	row, err := s.Get(dbc, userID)
	if err != nil {
		return err
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(in.Current)) != nil {
		return apierr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS", fmt.Errorf("current password does not match"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The hash swap and the token revocation land together or not at all.
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.userRepo.UpdateFields(inner, row.ID, map[string]any{"password_hash": string(hash)}); err != nil {
			return err
		}
		if err := s.userTokenRepo.RevokeAllForUser(inner, row.ID); err != nil {
			return err
		}
		s.log.Info("password changed", "user_id", row.ID)
		return nil
	})
}
