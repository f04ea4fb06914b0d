// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleParticipant = "participant"
	RoleVIP         = "vip"
	RolePro         = "pro"
	RoleBusiness    = "business"
	RoleAdmin       = "admin"
)

// UserRoles lists every valid value of User.Role.
var UserRoles = []string{RoleParticipant, RoleVIP, RolePro, RoleBusiness, RoleAdmin}

// Defaults applied to a freshly registered user.
const (
	DefaultUserTokens = 50
)

// User is a registered platform account.
//
// NOTE:
//   - Password holds the bcrypt hash. It is tagged json:"-" and every store read
//     path projects it away, so it never leaves the persistence layer by accident.
//   - Avatar is either a relative "/uploads/..." path written by the avatar
//     upload flow, or an external absolute URL set through the profile update.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Role      string             `bson:"role" json:"role"`
	Avatar    string             `bson:"avatar" json:"avatar"`
	JoinDate  time.Time          `bson:"join_date" json:"joinDate"`
	Tokens    int                `bson:"tokens" json:"tokens"`
	Friends   int                `bson:"friends" json:"friends"`
	Followers int                `bson:"followers" json:"followers"`
	Stats     UserStats          `bson:"stats" json:"stats"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserStats are activity counters shown on the profile page.
type UserStats struct {
	Events  int `bson:"events" json:"events"`
	Reviews int `bson:"reviews" json:"reviews"`
	Posts   int `bson:"posts" json:"posts"`
}

// IsValidUserRole reports whether role is one of UserRoles.
func IsValidUserRole(role string) bool {
	for _, r := range UserRoles {
		if r == role {
			return true
		}
	}
	return false
}
