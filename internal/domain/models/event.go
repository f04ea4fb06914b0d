// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCanceled  = "canceled"
	EventStatusCompleted = "completed"
)

// Event visibilities.
const (
	VisibilityPublic   = "public"
	VisibilityPrivate  = "private"
	VisibilityClanOnly = "clan-only"
)

// Participant statuses.
const (
	ParticipantRegistered = "registered"
	ParticipantAttended   = "attended"
	ParticipantCanceled   = "canceled"
)

// DefaultCurrency is used when an event price omits the currency.
const DefaultCurrency = "RUB"

// MaxEventTitleLen bounds Event.Title (in characters).
const MaxEventTitleLen = 100

// Event is a scheduled activity.
//
// Slug, AvgRating and Capacity.Registered are derived fields; the event store
// recomputes them before every write.
type Event struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title        string               `bson:"title" json:"title"`
	Slug         string               `bson:"slug" json:"slug"`
	Description  string               `bson:"description" json:"description"`
	CoverImage   string               `bson:"cover_image" json:"coverImage"`
	Images       []string             `bson:"images" json:"images"`
	Organizer    primitive.ObjectID   `bson:"organizer" json:"organizer"`
	Clan         *primitive.ObjectID  `bson:"clan,omitempty" json:"clan,omitempty"`
	Location     EventLocation        `bson:"location" json:"location"`
	StartDate    time.Time            `bson:"start_date" json:"startDate"`
	EndDate      time.Time            `bson:"end_date" json:"endDate"`
	Category     []string             `bson:"category" json:"category"`
	Tags         []string             `bson:"tags" json:"tags"`
	Price        EventPrice           `bson:"price" json:"price"`
	Capacity     EventCapacity        `bson:"capacity" json:"capacity"`
	Status       string               `bson:"status" json:"status"`
	Participants []EventParticipant   `bson:"participants" json:"participants"`
	Interested   []primitive.ObjectID `bson:"interested" json:"interested"`
	Visibility   string               `bson:"visibility" json:"visibility"`
	Reviews      []EventReview        `bson:"reviews" json:"reviews"`
	ViewCount    int                  `bson:"view_count" json:"viewCount"`
	AvgRating    float64              `bson:"avg_rating" json:"avgRating"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// EventLocation is where an event takes place.
type EventLocation struct {
	Address     string       `bson:"address" json:"address"`
	City        string       `bson:"city" json:"city"`
	Region      string       `bson:"region,omitempty" json:"region,omitempty"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// EventPrice describes the ticket price.
type EventPrice struct {
	Free     bool    `bson:"free" json:"free"`
	Value    float64 `bson:"value" json:"value"`
	Currency string  `bson:"currency" json:"currency"`
}

// EventCapacity limits registrations when Limited is set.
type EventCapacity struct {
	Limited    bool `bson:"limited" json:"limited"`
	Max        int  `bson:"max" json:"max"`
	Registered int  `bson:"registered" json:"registered"`
}

// EventParticipant is one registration.
type EventParticipant struct {
	User             primitive.ObjectID `bson:"user" json:"user"`
	Status           string             `bson:"status" json:"status"`
	RegistrationDate time.Time          `bson:"registration_date" json:"registrationDate"`
}

// EventReview is a 1..5 rating left by a user.
type EventReview struct {
	User    primitive.ObjectID `bson:"user" json:"user"`
	Rating  int                `bson:"rating" json:"rating"`
	Comment string             `bson:"comment" json:"comment"`
	Date    time.Time          `bson:"date" json:"date"`
}

// IsValidEventStatus reports whether s is a known event status.
func IsValidEventStatus(s string) bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCanceled, EventStatusCompleted:
		return true
	}
	return false
}

// IsValidVisibility reports whether v is a known visibility.
func IsValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityClanOnly:
		return true
	}
	return false
}

// eventTransitions lists the statuses reachable from each status.
// Completed and canceled events are terminal.
var eventTransitions = map[string][]string{
	EventStatusDraft:     {EventStatusPublished, EventStatusCanceled},
	EventStatusPublished: {EventStatusCompleted, EventStatusCanceled},
}

// CanTransition reports whether an event may move from one status to another.
// Re-applying the current status is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return IsValidEventStatus(to)
	}
	for _, s := range eventTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParticipantIndex returns the position of userID in Participants, or -1.
func (e *Event) ParticipantIndex(userID primitive.ObjectID) int {
	for i, p := range e.Participants {
		if p.User == userID {
			return i
		}
	}
	return -1
}
