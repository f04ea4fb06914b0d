package userstore_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/app/system/indexes"
	"github.com/siberialife/siberialife/internal/domain/models"
	"github.com/siberialife/siberialife/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *userstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return userstore.New(db)
}

func TestStore_Create_Defaults(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Name:     "  Иван  Петров ",
		Email:    "Ivan@Example.RU ",
		Password: "$2a$10$hash",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "Иван Петров" {
		t.Errorf("Name = %q", created.Name)
	}
	if created.Email != "ivan@example.ru" {
		t.Errorf("Email = %q", created.Email)
	}
	if created.Role != models.RoleParticipant {
		t.Errorf("Role = %q, want participant", created.Role)
	}
	if created.Tokens != models.DefaultUserTokens {
		t.Errorf("Tokens = %d, want %d", created.Tokens, models.DefaultUserTokens)
	}
	if created.JoinDate.IsZero() || created.CreatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if created.Password != "" {
		t.Error("Create must not return the password hash")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := models.User{Name: "A", Email: "dup@example.ru", Password: "h"}
	if _, err := store.Create(ctx, u); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	u.Email = "DUP@example.ru"
	if _, err := store.Create(ctx, u); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("second Create err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_Create_Invalid(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cases := []models.User{
		{Name: "", Email: "a@b.ru", Password: "h"},
		{Name: "A", Email: "not-an-email", Password: "h"},
		{Name: "A", Email: "a@b.ru", Password: "h", Role: "superuser"},
		{Name: strings.Repeat("я", userstore.MaxNameLen+1), Email: "a@b.ru", Password: "h"},
	}
	for _, u := range cases {
		if _, err := store.Create(ctx, u); !errors.Is(err, userstore.ErrInvalid) {
			t.Errorf("Create(%+v) err = %v, want ErrInvalid", u, err)
		}
	}
}

func TestStore_ReadsNeverReturnPassword(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Name: "A", Email: "a@b.ru", Password: "$2a$10$secret"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	byEmail, err := store.GetByEmail(ctx, "A@B.ru")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	for _, u := range []*models.User{byID, byEmail} {
		if u.Password != "" {
			t.Error("public read returned the hash")
		}
		raw, _ := json.Marshal(u)
		if strings.Contains(string(raw), "password") {
			t.Errorf("serialized user contains password: %s", raw)
		}
	}

	withHash, err := store.GetByEmailWithPassword(ctx, "a@b.ru")
	if err != nil {
		t.Fatalf("GetByEmailWithPassword: %v", err)
	}
	if withHash.Password != "$2a$10$secret" {
		t.Errorf("credential read Password = %q", withHash.Password)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, models.User{Name: "Old", Email: "p@b.ru", Password: "h"})

	name := "  New Name "
	avatar := "https://cdn.example.com/me.png"
	updated, err := store.UpdateProfile(ctx, created.ID, userstore.ProfileUpdate{Name: &name, Avatar: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "New Name" || updated.Avatar != avatar {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Password != "" {
		t.Error("UpdateProfile returned the hash")
	}

	empty := "   "
	if _, err := store.UpdateProfile(ctx, created.ID, userstore.ProfileUpdate{Name: &empty}); !errors.Is(err, userstore.ErrInvalid) {
		t.Errorf("blank name err = %v, want ErrInvalid", err)
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{Name: &name}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdatePassword(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, models.User{Name: "P", Email: "pw@b.ru", Password: "old"})

	if err := store.UpdatePassword(ctx, created.ID, "new"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	u, _ := store.GetByIDWithPassword(ctx, created.ID)
	if u.Password != "new" {
		t.Errorf("Password = %q, want new", u.Password)
	}

	if err := store.UpdatePassword(ctx, primitive.NewObjectID(), "x"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, _ := store.Create(ctx, models.User{Name: "F", Email: "f@b.ru", Password: "h", Role: models.RoleVIP})

	f := userstore.NewFetcher(db)
	u := f.FetchUser(ctx, created.ID.Hex())
	if u == nil || u.Role != models.RoleVIP || u.Email != "f@b.ru" {
		t.Fatalf("FetchUser = %+v", u)
	}
	if f.FetchUser(ctx, "bad-id") != nil {
		t.Error("expected nil for malformed id")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestStore_SetRoleByEmail(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Name: "Мария", Email: "maria@example.ru", Password: "$2a$10$hash"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u, err := store.SetRoleByEmail(ctx, " MARIA@example.ru", models.RoleAdmin)
	if err != nil {
		t.Fatalf("SetRoleByEmail failed: %v", err)
	}
	if u.ID != created.ID || u.Role != models.RoleAdmin {
		t.Errorf("got %s role %q", u.ID.Hex(), u.Role)
	}
	if u.Password != "" {
		t.Error("password hash leaked")
	}

	if _, err := store.SetRoleByEmail(ctx, "nobody@example.ru", models.RoleAdmin); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user: err = %v, want ErrNotFound", err)
	}
	if _, err := store.SetRoleByEmail(ctx, "maria@example.ru", "root"); !errors.Is(err, userstore.ErrInvalid) {
		t.Errorf("bad role: err = %v, want ErrInvalid", err)
	}
}

func TestStore_NamesByIDs(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, models.User{Name: "Алексей", Email: "alexey@example.ru", Password: "$2a$10$hash"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ghost := primitive.NewObjectID()

	names, err := store.NamesByIDs(ctx, []primitive.ObjectID{a.ID, ghost})
	if err != nil {
		t.Fatalf("NamesByIDs failed: %v", err)
	}
	if names[a.ID] != "Алексей" {
		t.Errorf("name = %q", names[a.ID])
	}
	if _, ok := names[ghost]; ok {
		t.Error("unknown id must be absent")
	}

	empty, err := store.NamesByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty ids: %v, %v", empty, err)
	}
}
