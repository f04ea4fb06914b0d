// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/siberialife/siberialife/internal/app/store/audit"
)

// listItem is a single audit event row.
type listItem struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Category   string            `json:"category"`
	EventType  string            `json:"eventType"`
	ActorName  string            `json:"actor,omitempty"`  // resolved from ActorID
	TargetName string            `json:"user,omitempty"`   // resolved from UserID
	TargetID   string            `json:"target,omitempty"` // clan or event id
	IP         string            `json:"ip"`
	Success    bool              `json:"success"`
	Reason     string            `json:"failureReason,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// listData is the response body of the list endpoint.
type listData struct {
	Items []listItem `json:"items"`

	Category  string `json:"category,omitempty"`
	EventType string `json:"eventType,omitempty"`

	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Total      int64 `json:"total"`
	HasPrev    bool  `json:"hasPrev"`
	HasNext    bool  `json:"hasNext"`
}

var categoryEvents = map[string][]string{
	audit.CategoryAuth: {
		audit.EventRegistered,
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventPasswordChanged,
		audit.EventPasswordChangeFailed,
	},
	audit.CategoryProfile: {
		audit.EventProfileUpdated,
		audit.EventAvatarUploaded,
	},
	audit.CategoryClan: {
		audit.EventClanCreated,
		audit.EventClanMemberJoined,
		audit.EventClanMemberLeft,
		audit.EventClanMemberRole,
		audit.EventClanMemberRemoved,
	},
	audit.CategoryEvent: {
		audit.EventEventCreated,
		audit.EventEventUpdated,
		audit.EventEventStatusChanged,
	},
}

func isKnownCategory(c string) bool {
	_, ok := categoryEvents[c]
	return ok
}

// isKnownEventType reports whether t belongs to category, or to any
// category when category is empty.
func isKnownEventType(category, t string) bool {
	for c, types := range categoryEvents {
		if category != "" && c != category {
			continue
		}
		for _, et := range types {
			if et == t {
				return true
			}
		}
	}
	return false
}
