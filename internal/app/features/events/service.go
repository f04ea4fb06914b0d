// internal/app/features/events/service.go
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	eventstore "github.com/siberialife/siberialife/internal/app/store/events"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/htmlsanitize"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const msgEventNotFound = "Event not found"

// Events is the part of the event store the service uses.
type Events interface {
	Create(ctx context.Context, e models.Event) (models.Event, error)
	Save(ctx context.Context, e *models.Event, prevTitle string) error
	GetByIDOrSlug(ctx context.Context, key string) (*models.Event, error)
	IncViews(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f eventstore.ListFilter) ([]models.Event, error)
}

// Stats bumps per-user activity counters. It is satisfied by the user store.
type Stats interface {
	IncStat(ctx context.Context, id primitive.ObjectID, stat string, delta int) error
}

type Service struct {
	events Events
	stats  Stats
	log    *zap.Logger
	now    func() time.Time
}

// NewService builds a Service. stats may be nil.
func NewService(events Events, stats Stats, logger *zap.Logger) *Service {
	return &Service{events: events, stats: stats, log: logger, now: time.Now}
}

// bump is best effort; counters never fail the request.
func (s *Service) bump(ctx context.Context, user primitive.ObjectID, stat string) {
	if s.stats == nil {
		return
	}
	if err := s.stats.IncStat(ctx, user, stat, 1); err != nil {
		s.log.Warn("user stat not updated", zap.String("user_id", user.Hex()), zap.String("stat", stat), zap.Error(err))
	}
}

// CapacityInput is the writable part of EventCapacity.
type CapacityInput struct {
	Limited bool `json:"limited"`
	Max     int  `json:"max" validate:"gte=0"`
}

// PriceInput is the writable part of EventPrice.
type PriceInput struct {
	Free     bool    `json:"free"`
	Value    float64 `json:"value" validate:"gte=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3"`
}

// CreateInput is the event creation payload.
type CreateInput struct {
	Title       string               `json:"title" validate:"required,notblank,max=100"`
	Description string               `json:"description" validate:"required,notblank,max=20000"`
	CoverImage  string               `json:"coverImage" validate:"max=2048"`
	Images      []string             `json:"images" validate:"max=20"`
	Clan        string               `json:"clan"`
	Location    models.EventLocation `json:"location"`
	StartDate   time.Time            `json:"startDate" validate:"required"`
	EndDate     time.Time            `json:"endDate" validate:"required,gtefield=StartDate"`
	Category    []string             `json:"category" validate:"required,min=1,dive,notblank"`
	Tags        []string             `json:"tags" validate:"max=20"`
	Price       *PriceInput          `json:"price"`
	Capacity    *CapacityInput       `json:"capacity"`
	Status      string               `json:"status" validate:"omitempty,oneof=draft published"`
	Visibility  string               `json:"visibility" validate:"omitempty,oneof=public private clan-only"`
}

// UpdateInput is the event edit payload. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string               `json:"title" validate:"omitempty,notblank,max=100"`
	Description *string               `json:"description" validate:"omitempty,notblank,max=20000"`
	CoverImage  *string               `json:"coverImage" validate:"omitempty,max=2048"`
	Images      []string              `json:"images" validate:"omitempty,max=20"`
	Location    *models.EventLocation `json:"location"`
	StartDate   *time.Time            `json:"startDate"`
	EndDate     *time.Time            `json:"endDate"`
	Category    []string              `json:"category" validate:"omitempty,min=1,dive,notblank"`
	Tags        []string              `json:"tags" validate:"omitempty,max=20"`
	Price       *PriceInput           `json:"price"`
	Capacity    *CapacityInput        `json:"capacity"`
	Visibility  *string               `json:"visibility" validate:"omitempty,oneof=public private clan-only"`
}

// StatusInput is the status change payload.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=draft published canceled completed"`
}

// ReviewInput is a rating left by a user.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, eventstore.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, msgEventNotFound, err)
	case errors.Is(err, eventstore.ErrDuplicateSlug):
		return apperr.Wrap(apperr.Conflict, "An event with a similar title already exists", err)
	case errors.Is(err, eventstore.ErrInvalid):
		msg := strings.TrimPrefix(err.Error(), eventstore.ErrInvalid.Error()+": ")
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

func applyPrice(e *models.Event, p *PriceInput) {
	if p == nil {
		return
	}
	e.Price = models.EventPrice{Free: p.Free, Value: p.Value, Currency: strings.ToUpper(p.Currency)}
	if p.Free {
		e.Price.Value = 0
	}
}

func applyCapacity(e *models.Event, c *CapacityInput) {
	if c == nil {
		return
	}
	e.Capacity.Limited = c.Limited
	e.Capacity.Max = c.Max
}

// Create stores a new event organized by actor. Events start as drafts
// unless the payload asks for published.
func (s *Service) Create(ctx context.Context, actor *auth.CurrentUser, in CreateInput) (models.Event, error) {
	uid, err := actorID(actor)
	if err != nil {
		return models.Event{}, err
	}
	if err := inputval.Struct(in); err != nil {
		return models.Event{}, err
	}

	e := models.Event{
		Title:       in.Title,
		Description: in.Description,
		CoverImage:  strings.TrimSpace(in.CoverImage),
		Images:      in.Images,
		Organizer:   uid,
		Location:    in.Location,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		Category:    in.Category,
		Tags:        in.Tags,
		Price:       models.EventPrice{Free: true},
		Status:      in.Status,
		Visibility:  in.Visibility,
	}
	if in.Clan != "" {
		clan, err := primitive.ObjectIDFromHex(in.Clan)
		if err != nil {
			return models.Event{}, apperr.New(apperr.ValidationFailed, "clan is invalid")
		}
		e.Clan = &clan
	}
	applyPrice(&e, in.Price)
	applyCapacity(&e, in.Capacity)

	created, err := s.events.Create(ctx, e)
	if err != nil {
		return models.Event{}, mapStoreErr(err)
	}
	s.bump(ctx, uid, "events")
	return created, nil
}

// List returns public events. Drafts are never listed.
func (s *Service) List(ctx context.Context, f eventstore.ListFilter) ([]models.Event, error) {
	if f.Status == models.EventStatusDraft {
		return nil, apperr.New(apperr.ValidationFailed, "status must be one of: published, canceled, completed")
	}
	if f.Status != "" && !models.IsValidEventStatus(f.Status) {
		return nil, apperr.New(apperr.ValidationFailed, "status must be one of: published, canceled, completed")
	}
	f.Visibility = models.VisibilityPublic
	out, err := s.events.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// canManage reports whether actor organizes e or is an admin.
func canManage(actor *auth.CurrentUser, e *models.Event) bool {
	return actor != nil && (actor.IsAdmin() || actor.ID == e.Organizer.Hex())
}

// hiddenFrom reports whether e is a draft or private event that viewer may
// not see.
func hiddenFrom(viewer *auth.CurrentUser, e *models.Event) bool {
	hidden := e.Status == models.EventStatusDraft || e.Visibility == models.VisibilityPrivate
	return hidden && !canManage(viewer, e)
}

// loadVisible loads an event and reports hidden ones as not found.
func (s *Service) loadVisible(ctx context.Context, viewer *auth.CurrentUser, key string) (*models.Event, error) {
	e, err := s.events.GetByIDOrSlug(ctx, key)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if hiddenFrom(viewer, e) {
		return nil, apperr.New(apperr.NotFound, msgEventNotFound)
	}
	return e, nil
}

// Get fetches an event by id or slug and counts the view. Drafts and
// private events are visible only to their organizer and admins.
func (s *Service) Get(ctx context.Context, viewer *auth.CurrentUser, key string) (*models.Event, error) {
	e, err := s.loadVisible(ctx, viewer, key)
	if err != nil {
		return nil, err
	}
	if err := s.events.IncViews(ctx, e.ID); err != nil {
		s.log.Warn("event view count not updated", zap.String("event_id", e.ID.Hex()), zap.Error(err))
	} else {
		e.ViewCount++
	}
	return e, nil
}

// loadManaged loads an event actor may edit.
func (s *Service) loadManaged(ctx context.Context, actor *auth.CurrentUser, key string) (*models.Event, error) {
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	e, err := s.events.GetByIDOrSlug(ctx, key)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !canManage(actor, e) {
		return nil, apperr.New(apperr.Forbidden, "Only the organizer can change this event")
	}
	return e, nil
}

// Update edits an event. A new title yields a new slug.
func (s *Service) Update(ctx context.Context, actor *auth.CurrentUser, key string, in UpdateInput) (*models.Event, error) {
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}
	e, err := s.loadManaged(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	prevTitle := e.Title

	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.CoverImage != nil {
		e.CoverImage = strings.TrimSpace(*in.CoverImage)
	}
	if in.Images != nil {
		e.Images = in.Images
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.StartDate != nil {
		e.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		e.EndDate = in.EndDate.UTC()
	}
	if in.Category != nil {
		e.Category = in.Category
	}
	if in.Tags != nil {
		e.Tags = in.Tags
	}
	if in.Visibility != nil {
		e.Visibility = *in.Visibility
	}
	applyPrice(e, in.Price)
	applyCapacity(e, in.Capacity)
	if e.Capacity.Limited && e.Capacity.Max < e.Capacity.Registered {
		return nil, apperr.New(apperr.ValidationFailed,
			fmt.Sprintf("capacity cannot be below the %d registered participants", e.Capacity.Registered))
	}

	if err := s.events.Save(ctx, e, prevTitle); err != nil {
		return nil, mapStoreErr(err)
	}
	return e, nil
}

// SetStatus moves the event to a new status if the transition is allowed.
// It returns the previous status.
func (s *Service) SetStatus(ctx context.Context, actor *auth.CurrentUser, key string, in StatusInput) (*models.Event, string, error) {
	if err := inputval.Struct(in); err != nil {
		return nil, "", err
	}
	e, err := s.loadManaged(ctx, actor, key)
	if err != nil {
		return nil, "", err
	}
	from := e.Status
	if !models.CanTransition(from, in.Status) {
		return nil, "", apperr.New(apperr.InvalidTransition,
			fmt.Sprintf("Cannot change status from %s to %s", from, in.Status))
	}
	if from == in.Status {
		return e, from, nil
	}
	e.Status = in.Status
	if err := s.events.Save(ctx, e, e.Title); err != nil {
		return nil, "", mapStoreErr(err)
	}
	return e, from, nil
}

// Register signs actor up for a published event. Private events only
// accept their organizer and admins. Registering twice is a no-op; a
// canceled registration is revived if there is room.
func (s *Service) Register(ctx context.Context, actor *auth.CurrentUser, key string) (*models.Event, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	e, err := s.loadVisible(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EventStatusPublished {
		return nil, apperr.New(apperr.Conflict, "Event is not open for registration")
	}

	i := e.ParticipantIndex(uid)
	if i >= 0 && e.Participants[i].Status != models.ParticipantCanceled {
		return e, nil
	}
	if e.Capacity.Limited && e.Capacity.Registered >= e.Capacity.Max {
		return nil, apperr.New(apperr.Conflict, "Event is full")
	}

	p := models.EventParticipant{User: uid, Status: models.ParticipantRegistered, RegistrationDate: s.now().UTC()}
	if i >= 0 {
		e.Participants[i] = p
	} else {
		e.Participants = append(e.Participants, p)
	}
	if err := s.events.Save(ctx, e, e.Title); err != nil {
		return nil, mapStoreErr(err)
	}
	return e, nil
}

// CancelRegistration marks actor's registration as canceled.
func (s *Service) CancelRegistration(ctx context.Context, actor *auth.CurrentUser, key string) (*models.Event, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	e, err := s.events.GetByIDOrSlug(ctx, key)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	i := e.ParticipantIndex(uid)
	if i < 0 && hiddenFrom(actor, e) {
		return nil, apperr.New(apperr.NotFound, msgEventNotFound)
	}
	if i < 0 || e.Participants[i].Status != models.ParticipantRegistered {
		return nil, apperr.New(apperr.ValidationFailed, "You are not registered for this event")
	}
	e.Participants[i].Status = models.ParticipantCanceled
	if err := s.events.Save(ctx, e, e.Title); err != nil {
		return nil, mapStoreErr(err)
	}
	return e, nil
}

// Review records actor's rating, replacing any earlier review by the same
// user. AvgRating is recomputed by the store.
func (s *Service) Review(ctx context.Context, actor *auth.CurrentUser, key string, in ReviewInput) (*models.Event, error) {
	uid, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}
	e, err := s.loadVisible(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EventStatusDraft {
		return nil, apperr.New(apperr.Conflict, "Draft events cannot be reviewed")
	}

	r := models.EventReview{
		User:    uid,
		Rating:  in.Rating,
		Comment: htmlsanitize.PlainText(in.Comment),
		Date:    s.now().UTC(),
	}
	replaced := false
	for i := range e.Reviews {
		if e.Reviews[i].User == uid {
			e.Reviews[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		e.Reviews = append(e.Reviews, r)
	}
	if err := s.events.Save(ctx, e, e.Title); err != nil {
		return nil, mapStoreErr(err)
	}
	if !replaced {
		s.bump(ctx, uid, "reviews")
	}
	return e, nil
}
