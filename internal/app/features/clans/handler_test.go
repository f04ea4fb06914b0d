package clans_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/features/clans"
	clanstore "github.com/siberialife/siberialife/internal/app/store/clans"
	"github.com/siberialife/siberialife/internal/app/system/indexes"
	"github.com/siberialife/siberialife/internal/domain/models"
	"github.com/siberialife/siberialife/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(store clans.Clans) *clans.Handler {
	logger := zap.NewNop()
	return clans.NewHandler(clans.NewService(store), nil, uierrors.NewErrorLogger(logger), logger)
}

type call struct {
	method string
	user   *testutil.TestUser
	params map[string]string
	body   any
	fn     http.HandlerFunc
}

func do(t *testing.T, c call) (*httptest.ResponseRecorder, testutil.Envelope) {
	t.Helper()
	req := testutil.JSONRequest(t, c.method, "/api/clans", c.body)
	if c.body == nil {
		req = httptest.NewRequest(c.method, "/api/clans", nil)
	}
	for k, v := range c.params {
		req = testutil.WithChiURLParam(req, k, v)
	}
	if c.user != nil {
		req = testutil.WithUser(req, *c.user)
	}
	rec := httptest.NewRecorder()
	c.fn(rec, req)
	return rec, testutil.DecodeEnvelope(t, rec)
}

func decodeClan(t *testing.T, env testutil.Envelope) models.Clan {
	t.Helper()
	var c models.Clan
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("decode clan: %v", err)
	}
	return c
}

func TestHandlers_Lifecycle(t *testing.T) {
	h := newHandler(newMemClans())
	leader := testutil.ParticipantUser()
	member := testutil.ParticipantUser()

	rec, env := do(t, call{method: http.MethodPost, user: &leader, body: validInput(), fn: h.HandleCreate})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	c := decodeClan(t, env)
	if c.MemberCount != 1 {
		t.Errorf("memberCount = %d", c.MemberCount)
	}

	rec, env = do(t, call{method: http.MethodGet, params: map[string]string{"id": c.Slug}, fn: h.HandleGet})
	if rec.Code != http.StatusOK || decodeClan(t, env).ID != c.ID {
		t.Fatalf("get by slug: %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		rec, env = do(t, call{method: http.MethodPost, user: &member, params: map[string]string{"id": c.ID.Hex()}, fn: h.HandleJoin})
		if rec.Code != http.StatusOK {
			t.Fatalf("join %d: %d %s", i, rec.Code, rec.Body.String())
		}
		if got := decodeClan(t, env).MemberCount; got != 2 {
			t.Errorf("join %d: memberCount = %d, want 2", i, got)
		}
	}

	rec, _ = do(t, call{method: http.MethodPost, user: &leader, params: map[string]string{"id": c.ID.Hex()}, fn: h.HandleLeave})
	if rec.Code != http.StatusForbidden {
		t.Errorf("last leader leave: %d, want 403", rec.Code)
	}

	rec, env = do(t, call{
		method: http.MethodPut, user: &leader,
		params: map[string]string{"id": c.ID.Hex(), "userId": member.ID},
		body:   map[string]string{"role": "moderator"},
		fn:     h.HandleSetRole,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set role: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = do(t, call{
		method: http.MethodPut, user: &leader,
		params: map[string]string{"id": c.ID.Hex(), "userId": member.ID},
		body:   map[string]string{"role": "king"},
		fn:     h.HandleSetRole,
	})
	if rec.Code != http.StatusBadRequest || env.Message != "role must be one of: leader, moderator, member" {
		t.Errorf("bad role: %d %q", rec.Code, env.Message)
	}

	rec, env = do(t, call{
		method: http.MethodDelete, user: &leader,
		params: map[string]string{"id": c.ID.Hex(), "userId": member.ID},
		fn:     h.HandleKick,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("kick: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeClan(t, env); got.MemberCount != 1 || len(got.Members) != 1 {
		t.Errorf("after kick: %+v", got.Members)
	}
}

func TestHandlers_Errors(t *testing.T) {
	h := newHandler(newMemClans())

	rec, _ := do(t, call{method: http.MethodPost, body: validInput(), fn: h.HandleCreate})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create without user: %d", rec.Code)
	}

	rec, _ = do(t, call{method: http.MethodGet, params: map[string]string{"id": "no-such-clan"}, fn: h.HandleGet})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing clan: %d", rec.Code)
	}

	u := testutil.ParticipantUser()
	rec, env := do(t, call{method: http.MethodPost, user: &u, body: map[string]string{"name": "Без описания"}, fn: h.HandleCreate})
	if rec.Code != http.StatusBadRequest || env.Message != "description is required" {
		t.Errorf("missing description: %d %q", rec.Code, env.Message)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/clans?limit=abc", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: %d", rr.Code)
	}
}

func TestHandlers_MongoDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	h := newHandler(clanstore.New(db))
	u := testutil.ParticipantUser()

	rec, _ := do(t, call{method: http.MethodPost, user: &u, body: validInput(), fn: h.HandleCreate})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	in := validInput()
	in.Name = "БАЙКАЛЬСКИЕ  походы"
	rec, env := do(t, call{method: http.MethodPost, user: &u, body: in, fn: h.HandleCreate})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: %d %q", rec.Code, env.Message)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/clans?category=hiking", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)
	var list []models.Clan
	if err := json.Unmarshal(testutil.DecodeEnvelope(t, rr).Data, &list); err != nil || len(list) != 1 {
		t.Errorf("list = %d clans, err %v", len(list), err)
	}
}

func TestHandlers_MongoJoinFixtureClan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateUser(ctx, "Вожак", "leader@example.ru", models.RoleParticipant)
	c := fx.CreateClan(ctx, "Клуб моржей", leader.ID)

	h := newHandler(clanstore.New(db))
	joiner := testutil.ParticipantUser()

	rec, env := do(t, call{method: http.MethodPost, user: &joiner, params: map[string]string{"id": c.Slug}, fn: h.HandleJoin})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: %d %q", rec.Code, env.Message)
	}

	rec, env = do(t, call{method: http.MethodGet, params: map[string]string{"id": c.ID.Hex()}, fn: h.HandleGet})
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %q", rec.Code, env.Message)
	}
	got := decodeClan(t, env)
	if got.MemberCount != 2 || got.RoleOf(leader.ID) != models.ClanRoleLeader {
		t.Errorf("memberCount = %d, leader role = %q", got.MemberCount, got.RoleOf(leader.ID))
	}
}
