package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	"github.com/yungbote/optocase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/ctxutil"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
)

// newAuthService builds the service over the test transaction so the inner
// transactions it opens become savepoints and roll back with the test.
func newAuthService(tb testing.TB, tx *gorm.DB) AuthService {
	tb.Helper()
	tb.Setenv("JWT_SECRET", "test-secret-not-for-production")
	log := testutil.Logger(tb)
	svc, err := NewAuthService(
		tx,
		log,
		repos.NewUserRepo(tx, log),
		repos.NewUserTokenRepo(tx, log),
		nil,
		nil,
		nil,
	)
	if err != nil {
		tb.Fatalf("NewAuthService: %v", err)
	}
	return svc
}

func validRegisterInput(email, username string) RegisterInput {
	return RegisterInput{
		Email:     email,
		Username:  username,
		Password:  "correct-horse-battery",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	svc := newAuthService(t, tx)

	user, pair, err := svc.Register(dbc, validRegisterInput("roundtrip@example.com", "roundtrip"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != types.RoleStudent {
		t.Fatalf("role = %s, want student (self-registration never grants more)", user.Role)
	}
	if user.Email != "roundtrip@example.com" || user.Username != "roundtrip" {
		t.Fatalf("user = %+v", user)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("token pair incomplete: %+v", pair)
	}

	rd, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if rd.UserID != user.ID || rd.Username != user.Username || rd.Role != string(types.RoleStudent) {
		t.Fatalf("parsed identity = %+v", rd)
	}

	if _, err := svc.ParseAccessToken("not.a.token"); err == nil {
		t.Fatalf("ParseAccessToken accepted garbage")
	}

	loggedIn, pair2, err := svc.Login(dbc, "ROUNDTRIP@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != user.ID || pair2.AccessToken == "" {
		t.Fatalf("login = %+v / %+v", loggedIn, pair2)
	}

	_, _, err = svc.Login(dbc, "roundtrip@example.com", "wrong-password")
	wantAPIError(t, err, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	_, _, err = svc.Login(dbc, "nobody@example.com", "whatever-password")
	wantAPIError(t, err, http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	svc := newAuthService(t, tx)

	if _, _, err := svc.Register(dbc, validRegisterInput("dup@example.com", "dupuser")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err := svc.Register(dbc, validRegisterInput("dup@example.com", "otheruser"))
	wantAPIError(t, err, http.StatusConflict, "EMAIL_TAKEN")

	_, _, err = svc.Register(dbc, validRegisterInput("other@example.com", "dupuser"))
	wantAPIError(t, err, http.StatusConflict, "USERNAME_TAKEN")

	bad := validRegisterInput("not-an-email", "shortpw")
	_, _, err = svc.Register(dbc, bad)
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")

	bad = validRegisterInput("ok@example.com", "okuser")
	bad.Password = "short"
	_, _, err = svc.Register(dbc, bad)
	wantAPIError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}

func TestRefreshRotatesTheGrant(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	svc := newAuthService(t, tx)

	user, pair, err := svc.Register(dbc, validRegisterInput("rotate@example.com", "rotate"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, pair2, err := svc.Refresh(dbc, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.ID != user.ID {
		t.Fatalf("refresh returned user %s, want %s", refreshed.ID, user.ID)
	}
	if pair2.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh did not rotate the token")
	}

	// The old grant died with the rotation.
	_, _, err = svc.Refresh(dbc, pair.RefreshToken)
	wantAPIError(t, err, http.StatusUnauthorized, "UNAUTHENTICATED")

	// The new one works.
	if _, _, err := svc.Refresh(dbc, pair2.RefreshToken); err != nil {
		t.Fatalf("Refresh (rotated): %v", err)
	}

	_, _, err = svc.Refresh(dbc, "")
	wantAPIError(t, err, http.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	svc := newAuthService(t, tx)

	_, pair, err := svc.Register(dbc, validRegisterInput("logout@example.com", "logout"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(dbc, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, _, err = svc.Refresh(dbc, pair.RefreshToken)
	wantAPIError(t, err, http.StatusUnauthorized, "UNAUTHENTICATED")

	// Unknown and empty tokens are quiet no-ops.
	if err := svc.Logout(dbc, "never-issued"); err != nil {
		t.Fatalf("Logout (unknown): %v", err)
	}
	if err := svc.Logout(dbc, ""); err != nil {
		t.Fatalf("Logout (empty): %v", err)
	}
}

func TestMeReadsIdentityFromContext(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	svc := newAuthService(t, tx)

	_, err := svc.Me(dbctx.Context{Ctx: ctx})
	wantAPIError(t, err, http.StatusUnauthorized, "UNAUTHENTICATED")

	user, _, err := svc.Register(dbctx.Context{Ctx: ctx}, validRegisterInput("me@example.com", "meuser"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	authed := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
	got, err := svc.Me(dbctx.Context{Ctx: authed})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("Me = %s, want %s", got.ID, user.ID)
	}

	ghost := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: uuid.New()})
	_, err = svc.Me(dbctx.Context{Ctx: ghost})
	wantAPIError(t, err, http.StatusUnauthorized, "UNAUTHENTICATED")
}
