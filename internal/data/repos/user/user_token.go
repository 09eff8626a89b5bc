package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, tok *types.UserToken) error
	GetByHash(dbc dbctx.Context, hash string) (*types.UserToken, error)
	Revoke(dbc dbctx.Context, id uuid.UUID) error
	RevokeAllForUser(dbc dbctx.Context, userID uuid.UUID) error
	DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, tok *types.UserToken) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if tok == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(tok).Error
}

func (r *userTokenRepo) GetByHash(dbc dbctx.Context, hash string) (*types.UserToken, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if hash == "" {
		return nil, nil
	}
	var row types.UserToken
	if err := t.WithContext(dbc.Ctx).
		Where("token_hash = ?", hash).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userTokenRepo) Revoke(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Model(&types.UserToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{"revoked_at": now, "updated_at": now}).Error
}

func (r *userTokenRepo) RevokeAllForUser(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Model(&types.UserToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]any{"revoked_at": now, "updated_at": now}).Error
}

func (r *userTokenRepo) DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Unscoped().
		Where("expires_at < ?", before).
		Delete(&types.UserToken{})
	return res.RowsAffected, res.Error
}
