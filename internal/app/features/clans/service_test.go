package clans_test

import (
	"context"
	"testing"

	"github.com/siberialife/siberialife/internal/app/features/clans"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func user(role string) *auth.CurrentUser {
	return &auth.CurrentUser{ID: primitive.NewObjectID().Hex(), Name: "Пользователь", Role: role}
}

func oid(t *testing.T, u *auth.CurrentUser) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		t.Fatalf("bad id %q", u.ID)
	}
	return id
}

func validInput() clans.CreateInput {
	return clans.CreateInput{
		Name:        "Байкальские Походы",
		Description: "<p>Ходим в горы</p><script>alert(1)</script>",
		Category:    "hiking",
		City:        "  Иркутск ",
		Tags:        []string{"Горы", "горы", "  Байкал "},
	}
}

func newClan(t *testing.T) (*clans.Service, *memClans, *auth.CurrentUser, models.Clan) {
	t.Helper()
	store := newMemClans()
	svc := clans.NewService(store)
	leader := user("participant")
	c, err := svc.Create(context.Background(), leader, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return svc, store, leader, c
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("err = %v, want %s", err, kind)
	}
}

func assertCount(t *testing.T, c models.Clan) {
	t.Helper()
	if c.MemberCount != len(c.Members) {
		t.Fatalf("memberCount = %d, members = %d", c.MemberCount, len(c.Members))
	}
}

func TestCreate_CreatorIsLeader(t *testing.T) {
	_, store, leader, c := newClan(t)

	if c.Creator != oid(t, leader) {
		t.Errorf("creator = %s", c.Creator.Hex())
	}
	if len(c.Members) != 1 || c.Members[0].Role != models.ClanRoleLeader || c.Members[0].User != oid(t, leader) {
		t.Fatalf("members = %+v", c.Members)
	}
	if c.Slug == "" || c.City != "Иркутск" {
		t.Errorf("slug = %q, city = %q", c.Slug, c.City)
	}
	if c.Description != "<p>Ходим в горы</p>" {
		t.Errorf("description not sanitized: %q", c.Description)
	}
	assertCount(t, store.stored(c.ID))
}

func TestCreate_Rejections(t *testing.T) {
	svc, _, _, _ := newClan(t)
	ctx := context.Background()

	dup := validInput()
	dup.Name = "байкальские походы"
	_, err := svc.Create(ctx, user("participant"), dup)
	assertKind(t, err, apperr.Conflict)

	missing := validInput()
	missing.Name = "Другой клан"
	missing.City = "  "
	_, err = svc.Create(ctx, user("participant"), missing)
	assertKind(t, err, apperr.ValidationFailed)

	badLogo := validInput()
	badLogo.Name = "Третий клан"
	badLogo.Logo = "javascript:alert(1)"
	_, err = svc.Create(ctx, user("participant"), badLogo)
	assertKind(t, err, apperr.ValidationFailed)

	_, err = svc.Create(ctx, nil, validInput())
	assertKind(t, err, apperr.Unauthorized)
}

func TestJoin_Idempotent(t *testing.T) {
	svc, store, _, c := newClan(t)
	ctx := context.Background()
	u := user("participant")

	got, joined, err := svc.Join(ctx, u, c.ID.Hex())
	if err != nil || !joined {
		t.Fatalf("first join: joined=%v err=%v", joined, err)
	}
	if got.RoleOf(oid(t, u)) != models.ClanRoleMember {
		t.Errorf("role = %q", got.RoleOf(oid(t, u)))
	}

	_, joined, err = svc.Join(ctx, u, c.Slug)
	if err != nil || joined {
		t.Fatalf("second join: joined=%v err=%v", joined, err)
	}
	stored := store.stored(c.ID)
	if len(stored.Members) != 2 {
		t.Errorf("members = %d, want 2", len(stored.Members))
	}
	assertCount(t, stored)

	_, _, err = svc.Join(ctx, u, primitive.NewObjectID().Hex())
	assertKind(t, err, apperr.NotFound)
}

func TestJoinLeave_SlugStillResolves(t *testing.T) {
	svc, store, _, c := newClan(t)
	ctx := context.Background()
	a, b := user("participant"), user("participant")

	if _, _, err := svc.Join(ctx, a, c.Slug); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if _, _, err := svc.Join(ctx, b, c.Slug); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if _, err := svc.Leave(ctx, a, c.Slug); err != nil {
		t.Fatalf("leave a: %v", err)
	}

	got, err := svc.Get(ctx, c.Slug)
	if err != nil {
		t.Fatalf("Get(%q) after saves: %v", c.Slug, err)
	}
	if got.Slug != "байкальские-походы" || got.Slug != store.stored(c.ID).Slug {
		t.Errorf("slug = %q, stored = %q", got.Slug, store.stored(c.ID).Slug)
	}
	assertCount(t, *got)
}

func TestLeave_LastLeader(t *testing.T) {
	svc, store, leader, c := newClan(t)
	ctx := context.Background()
	member := user("participant")
	if _, _, err := svc.Join(ctx, member, c.ID.Hex()); err != nil {
		t.Fatalf("Join: %v", err)
	}

	_, err := svc.Leave(ctx, leader, c.ID.Hex())
	assertKind(t, err, apperr.Forbidden)

	_, err = svc.Leave(ctx, user("participant"), c.ID.Hex())
	assertKind(t, err, apperr.ValidationFailed)

	got, err := svc.Leave(ctx, member, c.ID.Hex())
	if err != nil {
		t.Fatalf("member leave: %v", err)
	}
	assertCount(t, *got)

	// Alone in the clan, the leader may go.
	got, err = svc.Leave(ctx, leader, c.ID.Hex())
	if err != nil {
		t.Fatalf("sole leader leave: %v", err)
	}
	if got.MemberCount != 0 {
		t.Errorf("memberCount = %d, want 0", got.MemberCount)
	}
	assertCount(t, store.stored(c.ID))
}

func TestSetRole(t *testing.T) {
	svc, store, leader, c := newClan(t)
	ctx := context.Background()
	member := user("participant")
	other := user("participant")
	for _, u := range []*auth.CurrentUser{member, other} {
		if _, _, err := svc.Join(ctx, u, c.ID.Hex()); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}

	_, _, err := svc.SetRole(ctx, member, c.ID.Hex(), other.ID, clans.RoleInput{Role: models.ClanRoleModerator})
	assertKind(t, err, apperr.Forbidden)

	_, _, err = svc.SetRole(ctx, leader, c.ID.Hex(), member.ID, clans.RoleInput{Role: "owner"})
	assertKind(t, err, apperr.ValidationFailed)

	_, _, err = svc.SetRole(ctx, leader, c.ID.Hex(), primitive.NewObjectID().Hex(), clans.RoleInput{Role: models.ClanRoleMember})
	assertKind(t, err, apperr.NotFound)

	_, _, err = svc.SetRole(ctx, leader, c.ID.Hex(), leader.ID, clans.RoleInput{Role: models.ClanRoleMember})
	assertKind(t, err, apperr.Forbidden)

	got, target, err := svc.SetRole(ctx, leader, c.ID.Hex(), member.ID, clans.RoleInput{Role: models.ClanRoleModerator})
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if target != oid(t, member) || got.RoleOf(target) != models.ClanRoleModerator {
		t.Errorf("role = %q", got.RoleOf(target))
	}

	// Moderators cannot change roles.
	_, _, err = svc.SetRole(ctx, member, c.ID.Hex(), other.ID, clans.RoleInput{Role: models.ClanRoleModerator})
	assertKind(t, err, apperr.Forbidden)

	// With a second leader the first may step down.
	if _, _, err := svc.SetRole(ctx, leader, c.ID.Hex(), other.ID, clans.RoleInput{Role: models.ClanRoleLeader}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if _, _, err := svc.SetRole(ctx, leader, c.ID.Hex(), leader.ID, clans.RoleInput{Role: models.ClanRoleMember}); err != nil {
		t.Fatalf("step down: %v", err)
	}
	assertCount(t, store.stored(c.ID))
}

func TestKick(t *testing.T) {
	svc, store, leader, c := newClan(t)
	ctx := context.Background()
	mod := user("participant")
	m1 := user("participant")
	m2 := user("participant")
	for _, u := range []*auth.CurrentUser{mod, m1, m2} {
		if _, _, err := svc.Join(ctx, u, c.ID.Hex()); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}
	if _, _, err := svc.SetRole(ctx, leader, c.ID.Hex(), mod.ID, clans.RoleInput{Role: models.ClanRoleModerator}); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	_, _, err := svc.Kick(ctx, m1, c.ID.Hex(), m2.ID)
	assertKind(t, err, apperr.Forbidden)

	_, _, err = svc.Kick(ctx, mod, c.ID.Hex(), leader.ID)
	assertKind(t, err, apperr.Forbidden)

	_, _, err = svc.Kick(ctx, leader, c.ID.Hex(), leader.ID)
	assertKind(t, err, apperr.ValidationFailed)

	got, _, err := svc.Kick(ctx, mod, c.ID.Hex(), m1.ID)
	if err != nil {
		t.Fatalf("moderator kick: %v", err)
	}
	if got.MemberIndex(oid(t, m1)) >= 0 {
		t.Error("kicked member still listed")
	}

	if _, _, err := svc.Kick(ctx, leader, c.ID.Hex(), mod.ID); err != nil {
		t.Fatalf("leader kick: %v", err)
	}

	_, _, err = svc.Kick(ctx, user("admin"), c.ID.Hex(), leader.ID)
	assertKind(t, err, apperr.Forbidden)

	if _, _, err := svc.Kick(ctx, user("admin"), c.ID.Hex(), m2.ID); err != nil {
		t.Fatalf("admin kick: %v", err)
	}

	stored := store.stored(c.ID)
	if len(stored.Members) != 1 {
		t.Errorf("members = %+v, want only the leader", stored.Members)
	}
	assertCount(t, stored)
}
