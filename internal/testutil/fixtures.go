package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/siberialife/siberialife/internal/app/system/authutil"
	"github.com/siberialife/siberialife/internal/app/system/slugify"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FixturePassword is the plain-text password of every fixture user.
const FixturePassword = "secret1"

// Fixtures provides helper methods for creating test data. Documents are
// inserted directly, with derived fields filled in the way the stores
// would.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user whose password is FixturePassword.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	hash, err := authutil.HashPassword(FixturePassword)
	if err != nil {
		f.t.Fatalf("hash fixture password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  hash,
		Role:      role,
		JoinDate:  now,
		Tokens:    models.DefaultUserTokens,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create user %s: %v", email, err)
	}
	u.Password = ""
	return u
}

// CreateAdmin inserts a user with the admin role.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateClan inserts a clan led by leader.
func (f *Fixtures) CreateClan(ctx context.Context, name string, leader primitive.ObjectID) models.Clan {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Clan{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Slug:        slugify.Make(name),
		Description: "Клан для тестов",
		Creator:     leader,
		Members:     []models.ClanMember{{User: leader, Role: models.ClanRoleLeader, JoinDate: now}},
		MemberCount: 1,
		Tags:        []string{},
		Category:    "test",
		City:        "Новосибирск",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("clans").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create clan %s: %v", name, err)
	}
	return c
}

// CreateEvent inserts a public event a week from now with the given status.
func (f *Fixtures) CreateEvent(ctx context.Context, title string, organizer primitive.ObjectID, status string) models.Event {
	f.t.Helper()

	now := time.Now().UTC()
	start := now.Add(7 * 24 * time.Hour).Truncate(time.Millisecond)
	e := models.Event{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Slug:         slugify.Make(title),
		Description:  "Событие для тестов",
		Images:       []string{},
		Organizer:    organizer,
		Location:     models.EventLocation{Address: "ул. Ленина, 1", City: "Новосибирск"},
		StartDate:    start,
		EndDate:      start.Add(2 * time.Hour),
		Category:     []string{"test"},
		Tags:         []string{},
		Price:        models.EventPrice{Free: true, Currency: models.DefaultCurrency},
		Status:       status,
		Participants: []models.EventParticipant{},
		Interested:   []primitive.ObjectID{},
		Visibility:   models.VisibilityPublic,
		Reviews:      []models.EventReview{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create event %s: %v", title, err)
	}
	return e
}
