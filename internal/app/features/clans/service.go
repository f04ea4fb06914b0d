// internal/app/features/clans/service.go
package clans

import (
	"context"
	"errors"
	"strings"
	"time"

	clanstore "github.com/siberialife/siberialife/internal/app/store/clans"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgClanNotFound   = "Clan not found"
	msgMemberNotFound = "Member not found"
)

// Clans is the part of the clan store the service uses.
type Clans interface {
	Create(ctx context.Context, c models.Clan) (models.Clan, error)
	Save(ctx context.Context, c *models.Clan) error
	GetByIDOrSlug(ctx context.Context, key string) (*models.Clan, error)
	List(ctx context.Context, f clanstore.ListFilter) ([]models.Clan, error)
}

type Service struct {
	clans Clans
	now   func() time.Time
}

func NewService(clans Clans) *Service {
	return &Service{clans: clans, now: time.Now}
}

// CreateInput is the clan creation payload.
type CreateInput struct {
	Name        string   `json:"name" validate:"required,notblank,max=100"`
	Slug        string   `json:"slug" validate:"max=120"`
	Description string   `json:"description" validate:"required,notblank,max=5000"`
	Logo        string   `json:"logo" validate:"max=2048"`
	Cover       string   `json:"cover" validate:"max=2048"`
	Tags        []string `json:"tags" validate:"max=20"`
	Category    string   `json:"category" validate:"required,notblank,max=50"`
	City        string   `json:"city" validate:"required,notblank,max=100"`
	IsPrivate   bool     `json:"isPrivate"`
}

// RoleInput is the member role change payload.
type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=leader moderator member"`
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, clanstore.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, msgClanNotFound, err)
	case errors.Is(err, clanstore.ErrDuplicate):
		return apperr.Wrap(apperr.Conflict, "A clan with this name already exists", err)
	case errors.Is(err, clanstore.ErrInvalid):
		msg := strings.TrimPrefix(err.Error(), clanstore.ErrInvalid.Error()+": ")
		return apperr.Wrap(apperr.ValidationFailed, msg, err)
	}
	return apperr.Internal(err)
}

func actorID(actor *auth.CurrentUser) (primitive.ObjectID, error) {
	if actor == nil {
		return primitive.NilObjectID, apperr.New(apperr.Unauthorized, "Not authorized, no token")
	}
	oid, err := primitive.ObjectIDFromHex(actor.ID)
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.Unauthorized, "Not authorized, token failed", err)
	}
	return oid, nil
}

// Create makes a new clan with actor as its creator and only leader.
func (s *Service) Create(ctx context.Context, actor *auth.CurrentUser, in CreateInput) (models.Clan, error) {
	uid, err := actorID(actor)
	if err != nil {
		return models.Clan{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.Clan{}, err
	}
	for _, u := range []string{in.Logo, in.Cover} {
		if u != "" && !inputval.IsValidHTTPURL(u) && !strings.HasPrefix(u, "/uploads/") {
			return models.Clan{}, apperr.New(apperr.ValidationFailed, "logo and cover must be URLs")
		}
	}

	c := models.Clan{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Logo:        in.Logo,
		Cover:       in.Cover,
		Creator:     uid,
		Members:     []models.ClanMember{{User: uid, Role: models.ClanRoleLeader, JoinDate: s.now().UTC()}},
		Tags:        in.Tags,
		Category:    in.Category,
		City:        in.City,
		IsPrivate:   in.IsPrivate,
	}
	created, err := s.clans.Create(ctx, c)
	if err != nil {
		return models.Clan{}, mapStoreErr(err)
	}
	return created, nil
}

// List returns clans matching f.
func (s *Service) List(ctx context.Context, f clanstore.ListFilter) ([]models.Clan, error) {
	out, err := s.clans.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Get fetches a clan by id or slug.
func (s *Service) Get(ctx context.Context, key string) (*models.Clan, error) {
	c, err := s.clans.GetByIDOrSlug(ctx, key)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return c, nil
}

// Join adds actor as a member. Joining a clan twice is a no-op; joined
// reports whether the roster changed.
func (s *Service) Join(ctx context.Context, actor *auth.CurrentUser, key string) (c *models.Clan, joined bool, err error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, false, err
	}
	c, err = s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if c.MemberIndex(uid) >= 0 {
		return c, false, nil
	}
	c.Members = append(c.Members, models.ClanMember{User: uid, Role: models.ClanRoleMember, JoinDate: s.now().UTC()})
	if err := s.clans.Save(ctx, c); err != nil {
		return nil, false, mapStoreErr(err)
	}
	return c, true, nil
}

// Leave removes actor from the clan. The last leader may only leave once
// every other member is gone.
func (s *Service) Leave(ctx context.Context, actor *auth.CurrentUser, key string) (*models.Clan, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	i := c.MemberIndex(uid)
	if i < 0 {
		return nil, apperr.New(apperr.ValidationFailed, "You are not a member of this clan")
	}
	if c.Members[i].Role == models.ClanRoleLeader && leaderCount(c) == 1 && len(c.Members) > 1 {
		return nil, apperr.New(apperr.Forbidden, "Appoint another leader before leaving the clan")
	}
	c.Members = append(c.Members[:i], c.Members[i+1:]...)
	if err := s.clans.Save(ctx, c); err != nil {
		return nil, mapStoreErr(err)
	}
	return c, nil
}

// SetRole changes the role of member userID. Only clan leaders and admins
// may do this, and a clan always keeps at least one leader.
func (s *Service) SetRole(ctx context.Context, actor *auth.CurrentUser, key, userID string, in RoleInput) (*models.Clan, primitive.ObjectID, error) {
	if err := inputval.Struct(in); err != nil {
		return nil, primitive.NilObjectID, err
	}
	c, target, i, err := s.loadForManage(ctx, actor, key, userID, false)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	cur := c.Members[i].Role
	if cur == models.ClanRoleLeader && in.Role != models.ClanRoleLeader && leaderCount(c) == 1 {
		return nil, primitive.NilObjectID, apperr.New(apperr.Forbidden, "A clan must keep at least one leader")
	}
	if cur == in.Role {
		return c, target, nil
	}
	c.Members[i].Role = in.Role
	if err := s.clans.Save(ctx, c); err != nil {
		return nil, primitive.NilObjectID, mapStoreErr(err)
	}
	return c, target, nil
}

// Kick removes member userID. Leaders may remove anyone but themselves;
// moderators may remove plain members.
func (s *Service) Kick(ctx context.Context, actor *auth.CurrentUser, key, userID string) (*models.Clan, primitive.ObjectID, error) {
	c, target, i, err := s.loadForManage(ctx, actor, key, userID, true)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if target.Hex() == actor.ID {
		return nil, primitive.NilObjectID, apperr.New(apperr.ValidationFailed, "Use leave to exit the clan")
	}
	uid, _ := primitive.ObjectIDFromHex(actor.ID)
	if !actor.IsAdmin() && c.RoleOf(uid) == models.ClanRoleModerator && c.Members[i].Role != models.ClanRoleMember {
		return nil, primitive.NilObjectID, apperr.New(apperr.Forbidden, "Moderators can only remove members")
	}
	if c.Members[i].Role == models.ClanRoleLeader && leaderCount(c) == 1 {
		return nil, primitive.NilObjectID, apperr.New(apperr.Forbidden, "A clan must keep at least one leader")
	}
	c.Members = append(c.Members[:i], c.Members[i+1:]...)
	if err := s.clans.Save(ctx, c); err != nil {
		return nil, primitive.NilObjectID, mapStoreErr(err)
	}
	return c, target, nil
}

// loadForManage loads the clan and locates userID in it after checking that
// actor is a leader (or a moderator when allowModerator is set) or an admin.
func (s *Service) loadForManage(ctx context.Context, actor *auth.CurrentUser, key, userID string, allowModerator bool) (*models.Clan, primitive.ObjectID, int, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, primitive.NilObjectID, -1, err
	}
	c, err := s.Get(ctx, key)
	if err != nil {
		return nil, primitive.NilObjectID, -1, err
	}
	if !actor.IsAdmin() {
		switch c.RoleOf(uid) {
		case models.ClanRoleLeader:
		case models.ClanRoleModerator:
			if !allowModerator {
				return nil, primitive.NilObjectID, -1, apperr.New(apperr.Forbidden, "Only clan leaders can change roles")
			}
		default:
			return nil, primitive.NilObjectID, -1, apperr.New(apperr.Forbidden, "Not allowed to manage this clan")
		}
	}
	target, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, primitive.NilObjectID, -1, apperr.New(apperr.NotFound, msgMemberNotFound)
	}
	i := c.MemberIndex(target)
	if i < 0 {
		return nil, primitive.NilObjectID, -1, apperr.New(apperr.NotFound, msgMemberNotFound)
	}
	return c, target, i, nil
}

func leaderCount(c *models.Clan) int {
	n := 0
	for _, m := range c.Members {
		if m.Role == models.ClanRoleLeader {
			n++
		}
	}
	return n
}
