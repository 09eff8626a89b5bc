package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/dberr"
	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/events"
	"github.com/yungbote/optocase-backend/internal/mail"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/ctxutil"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/platform/validate"
)

type JWTClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// TokenPair is what a successful register/login/refresh hands the transport
// layer to set cookies from.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
}

type AuthService interface {
	Register(dbc dbctx.Context, input RegisterInput) (*types.User, *TokenPair, error)
	Login(dbc dbctx.Context, email, password string) (*types.User, *TokenPair, error)
	Refresh(dbc dbctx.Context, refreshToken string) (*types.User, *TokenPair, error)
	Logout(dbc dbctx.Context, refreshToken string) error
	Me(dbc dbctx.Context) (*types.User, error)
	// ParseAccessToken verifies the JWT and returns the identity it carries.
	// Used by the auth middleware on every request.
	ParseAccessToken(tokenString string) (*ctxutil.RequestData, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	avatarService AvatarService
	publisher     events.Publisher
	mailer        mail.Mailer
	jwtSecret     []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	avatarService AvatarService,
	publisher events.Publisher,
	mailer mail.Mailer,
) (AuthService, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		avatarService: avatarService,
		publisher:     publisher,
		mailer:        mailer,
		jwtSecret:     []byte(secret),
		accessTTL:     envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		refreshTTL:    envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
	}, nil
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (s *authService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *authService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *authService) Register(dbc dbctx.Context, input RegisterInput) (*types.User, *TokenPair, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	if err := validate.Struct(input); err != nil {
		ae := apierr.New(http.StatusBadRequest, "BAD_REQUEST", err)
		if fields := validate.Fields(err); len(fields) > 0 {
			return nil, nil, ae.WithPayload(map[string]any{"fields": fields})
		}
		return nil, nil, ae
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		ID:           uuid.New(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hash),
		Role:         types.RoleStudent,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}

	var pair *TokenPair
	if err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		// Pre-checks give the friendly code; the unique indexes stay the
		// actual guarantee under concurrency.
		if taken, err := s.userRepo.EmailExists(inner, user.Email); err != nil {
			return err
		} else if taken {
			return apierr.New(http.StatusConflict, "EMAIL_TAKEN", fmt.Errorf("email already registered"))
		}
		if taken, err := s.userRepo.UsernameExists(inner, user.Username); err != nil {
			return err
		} else if taken {
			return apierr.New(http.StatusConflict, "USERNAME_TAKEN", fmt.Errorf("username already taken"))
		}

		if s.avatarService != nil {
			if err := s.avatarService.EnsureUserAvatar(inner, user); err != nil {
				return fmt.Errorf("create user avatar: %w", err)
			}
		}

		if err := s.userRepo.Create(inner, user); err != nil {
			if dberr.IsDuplicate(err) {
				return apierr.New(http.StatusConflict, "EMAIL_TAKEN", fmt.Errorf("email already registered"))
			}
			return err
		}

		p, err := s.issueTokens(inner, user)
		if err != nil {
			return err
		}
		pair = p
		return nil
	}); err != nil {
		return nil, nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(dbc.Ctx, events.Event{
			Type:    events.TypeUserRegistered,
			ActorID: user.ID,
			Payload: map[string]any{"user_id": user.ID, "role": user.Role},
		}); err != nil {
			s.log.Warn("publish user.registered failed", "error", err)
		}
	}
	if s.mailer != nil {
		s.mailer.SendWelcome(dbc.Ctx, user)
	}

	return user, pair, nil
}

func (s *authService) Login(dbc dbctx.Context, email, password string) (*types.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, apierr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS", fmt.Errorf("invalid email or password"))
	}

	user, err := s.userRepo.GetByEmail(dbc, email)
	if err != nil {
		return nil, nil, err
	}
	// Burn a bcrypt comparison either way so a miss costs the same as a
	// wrong password.
	stored := dummyPasswordHash
	if user != nil {
		stored = user.PasswordHash
	}
	cmpErr := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	if user == nil || cmpErr != nil {
		return nil, nil, apierr.New(http.StatusUnauthorized, "INVALID_CREDENTIALS", fmt.Errorf("invalid email or password"))
	}

	var pair *TokenPair
	if err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.issueTokens(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, user)
		if err != nil {
			return err
		}
		pair = p
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) Refresh(dbc dbctx.Context, refreshToken string) (*types.User, *TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, nil, apierr.New(http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("missing refresh token"))
	}

	var (
		user *types.User
		pair *TokenPair
	)
	if err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		row, err := s.userTokenRepo.GetByHash(inner, hashToken(refreshToken))
		if err != nil {
			return err
		}
		if row == nil || !row.Live(time.Now().UTC()) {
			return apierr.New(http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("refresh token expired or revoked"))
		}

		u, err := s.userRepo.GetByID(inner, row.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return apierr.New(http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("user no longer exists"))
		}
		user = u

		// Rotation: the old grant dies in the same transaction that mints
		// the new one.
		if err := s.userTokenRepo.Revoke(inner, row.ID); err != nil {
			return err
		}
		p, err := s.issueTokens(inner, u)
		if err != nil {
			return err
		}
		pair = p
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *authService) Logout(dbc dbctx.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	row, err := s.userTokenRepo.GetByHash(dbc, hashToken(refreshToken))
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	return s.userTokenRepo.Revoke(dbc, row.ID)
}

func (s *authService) Me(dbc dbctx.Context) (*types.User, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("not signed in"))
	}
	user, err := s.userRepo.GetByID(dbc, rd.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierr.New(http.StatusUnauthorized, "UNAUTHENTICATED", fmt.Errorf("user no longer exists"))
	}
	return user, nil
}

func (s *authService) ParseAccessToken(tokenString string) (*ctxutil.RequestData, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("empty token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return &ctxutil.RequestData{
		UserID:   userID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (s *authService) issueTokens(dbc dbctx.Context, user *types.User) (*TokenPair, error) {
	now := time.Now().UTC()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: user.Username,
		Role:     string(user.Role),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.userTokenRepo.Create(dbc, &types.UserToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(s.refreshTTL),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.accessTTL,
		RefreshTTL:   s.refreshTTL,
	}, nil
}

// dummyPasswordHash is a syntactically valid bcrypt digest no account uses.
// Same cost as real hashes so the comparison takes the same time.
var dummyPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	}
	return string(h)
}()

func newRefreshToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
