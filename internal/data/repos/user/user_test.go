package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewUserRepo(db, testutil.Logger(t))

	u := &types.User{
		ID:           uuid.New(),
		Email:        "userrepo@example.com",
		Username:     "userrepo",
		PasswordHash: "x",
		Role:         types.RoleStudent,
		FirstName:    "A",
		LastName:     "B",
	}
	if err := repo.Create(dbc, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	got, err = repo.GetByEmail(dbc, u.Email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got == nil || got.Email != u.Email {
		t.Fatalf("GetByEmail: unexpected result: %+v", got)
	}

	got, err = repo.GetByUsername(dbc, u.Username)
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got == nil || got.Username != u.Username {
		t.Fatalf("GetByUsername: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetByID (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID (missing): expected nil, got %+v", missing)
	}

	exists, err := repo.EmailExists(dbc, u.Email)
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if !exists {
		t.Fatalf("EmailExists: expected true")
	}
	exists, err = repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil {
		t.Fatalf("EmailExists (missing): %v", err)
	}
	if exists {
		t.Fatalf("EmailExists (missing): expected false")
	}

	exists, err = repo.UsernameExists(dbc, u.Username)
	if err != nil {
		t.Fatalf("UsernameExists: %v", err)
	}
	if !exists {
		t.Fatalf("UsernameExists: expected true")
	}

	if err := repo.UpdateFields(dbc, u.ID, map[string]any{"first_name": "Ada"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err = repo.GetByID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByID (after update): %v", err)
	}
	if got.FirstName != "Ada" {
		t.Fatalf("UpdateFields: first_name = %q, want Ada", got.FirstName)
	}

	batch, err := repo.GetByIDs(dbc, []uuid.UUID{u.ID, uuid.New()})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(batch) != 1 || batch[0].ID != u.ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", batch)
	}
}
