// internal/domain/models/clan.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clan member roles.
const (
	ClanRoleLeader    = "leader"
	ClanRoleModerator = "moderator"
	ClanRoleMember    = "member"
)

// Clan is a user-created interest community.
//
// MemberCount and NameCI are derived by the clan store on every write;
// values supplied by callers are overwritten.
type Clan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description" json:"description"`
	Logo        string             `bson:"logo" json:"logo"`
	Cover       string             `bson:"cover" json:"cover"`
	Creator     primitive.ObjectID `bson:"creator" json:"creator"`
	Members     []ClanMember       `bson:"members" json:"members"`
	MemberCount int                `bson:"member_count" json:"memberCount"`
	Tags        []string           `bson:"tags" json:"tags"`
	Category    string             `bson:"category" json:"category"`
	City        string             `bson:"city" json:"city"`
	IsVerified  bool               `bson:"is_verified" json:"isVerified"`
	IsPrivate   bool               `bson:"is_private" json:"isPrivate"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ClanMember is one entry of a clan roster.
type ClanMember struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     string             `bson:"role" json:"role"`
	JoinDate time.Time          `bson:"join_date" json:"joinDate"`
}

// IsValidClanRole reports whether role is leader, moderator or member.
func IsValidClanRole(role string) bool {
	switch role {
	case ClanRoleLeader, ClanRoleModerator, ClanRoleMember:
		return true
	}
	return false
}

// MemberIndex returns the position of userID in the roster, or -1.
func (c *Clan) MemberIndex(userID primitive.ObjectID) int {
	for i, m := range c.Members {
		if m.User == userID {
			return i
		}
	}
	return -1
}

// RoleOf returns the clan role of userID, or "" when not a member.
func (c *Clan) RoleOf(userID primitive.ObjectID) string {
	if i := c.MemberIndex(userID); i >= 0 {
		return c.Members[i].Role
	}
	return ""
}
