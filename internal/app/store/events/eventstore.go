// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/siberialife/siberialife/internal/app/system/htmlsanitize"
	"github.com/siberialife/siberialife/internal/app/system/normalize"
	"github.com/siberialife/siberialife/internal/app/system/slugify"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// maxSlugAttempts bounds the "-2", "-3", ... suffixes tried on a slug clash.
const maxSlugAttempts = 5

var (
	ErrNotFound      = errors.New("event not found")
	ErrInvalid       = errors.New("invalid event")
	ErrDuplicateSlug = errors.New("an event with a similar title already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// NormalizeEvent recomputes the derived fields of e in place.
//
// The slug is regenerated from the title when the event is new or its title
// differs from prevTitle. AvgRating is the mean of the review ratings
// whenever there are reviews. Capacity.Registered counts participants that
// have not canceled.
func NormalizeEvent(e *models.Event, prevTitle string, isNew bool) {
	e.Title = strings.TrimSpace(e.Title)
	if isNew || e.Title != prevTitle || e.Slug == "" {
		e.Slug = slugify.Make(e.Title)
	}
	e.Description = htmlsanitize.Sanitize(e.Description)
	e.Location.City = normalize.Name(e.Location.City)
	e.Tags = normalize.Tags(e.Tags)
	e.Category = normalize.Tags(e.Category)

	if e.Status == "" {
		e.Status = models.EventStatusDraft
	}
	if e.Visibility == "" {
		e.Visibility = models.VisibilityPublic
	}
	if e.Price.Currency == "" {
		e.Price.Currency = models.DefaultCurrency
	}

	if len(e.Reviews) > 0 {
		sum := 0
		for _, r := range e.Reviews {
			sum += r.Rating
		}
		e.AvgRating = float64(sum) / float64(len(e.Reviews))
	}

	registered := 0
	for _, p := range e.Participants {
		if p.Status != models.ParticipantCanceled {
			registered++
		}
	}
	e.Capacity.Registered = registered

	if e.Images == nil {
		e.Images = []string{}
	}
	if e.Participants == nil {
		e.Participants = []models.EventParticipant{}
	}
	if e.Interested == nil {
		e.Interested = []primitive.ObjectID{}
	}
	if e.Reviews == nil {
		e.Reviews = []models.EventReview{}
	}
}

// Validate checks a normalized event.
func Validate(e models.Event) error {
	switch {
	case e.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case utf8.RuneCountInString(e.Title) > models.MaxEventTitleLen:
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalid, models.MaxEventTitleLen)
	case e.Slug == "":
		return fmt.Errorf("%w: title must contain letters or digits", ErrInvalid)
	case e.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalid)
	case e.Organizer.IsZero():
		return fmt.Errorf("%w: organizer is required", ErrInvalid)
	case e.StartDate.IsZero() || e.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalid)
	case e.EndDate.Before(e.StartDate):
		return fmt.Errorf("%w: end date must not be before start date", ErrInvalid)
	case len(e.Category) == 0:
		return fmt.Errorf("%w: at least one category is required", ErrInvalid)
	case !models.IsValidEventStatus(e.Status):
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, e.Status)
	case !models.IsValidVisibility(e.Visibility):
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalid, e.Visibility)
	case e.Price.Value < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	case e.Capacity.Limited && e.Capacity.Max <= 0:
		return fmt.Errorf("%w: limited capacity needs a positive max", ErrInvalid)
	}
	for _, r := range e.Reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalid)
		}
	}
	for _, p := range e.Participants {
		switch p.Status {
		case models.ParticipantRegistered, models.ParticipantAttended, models.ParticipantCanceled:
		default:
			return fmt.Errorf("%w: unknown participant status %q", ErrInvalid, p.Status)
		}
	}
	return nil
}

// Create inserts a new event. When the derived slug is taken, numbered
// suffixes are tried before giving up with ErrDuplicateSlug.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = now
	e.UpdatedAt = now
	NormalizeEvent(&e, "", true)
	if err := Validate(e); err != nil {
		return models.Event{}, err
	}

	err := withSlugRetry(&e, true, func() error {
		_, err := s.c.InsertOne(ctx, e)
		return err
	})
	if err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Save replaces the stored event with e. prevTitle is the title the event
// had when it was loaded.
func (s *Store) Save(ctx context.Context, e *models.Event, prevTitle string) error {
	titleChanged := strings.TrimSpace(e.Title) != prevTitle
	NormalizeEvent(e, prevTitle, false)
	if err := Validate(*e); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()

	var matched int64
	err := withSlugRetry(e, titleChanged, func() error {
		res, err := s.c.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

// withSlugRetry runs write, retrying with a suffixed slug on a duplicate key
// when the slug was freshly derived.
func withSlugRetry(e *models.Event, derived bool, write func() error) error {
	base := e.Slug
	for attempt := 1; ; attempt++ {
		err := write()
		if err == nil {
			return nil
		}
		if !wafflemongo.IsDup(err) {
			return err
		}
		if !derived || attempt >= maxSlugAttempts {
			return ErrDuplicateSlug
		}
		e.Slug = base + "-" + strconv.Itoa(attempt+1)
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return s.findOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(slug))})
}

// GetByIDOrSlug treats key as an ObjectID when it parses as one.
func (s *Store) GetByIDOrSlug(ctx context.Context, key string) (*models.Event, error) {
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		return s.GetByID(ctx, oid)
	}
	return s.GetBySlug(ctx, key)
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, filter).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// IncViews bumps the view counter.
func (s *Store) IncViews(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"view_count": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteEnded moves published events whose end date is before now to
// completed and returns how many changed.
func (s *Store) CompleteEnded(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.EventStatusPublished, "end_date": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"status": models.EventStatusCompleted, "updated_at": now.UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListFilter narrows List. Empty Status and Visibility default to published
// and public.
type ListFilter struct {
	City       string
	Category   string
	Status     string
	Visibility string
	Organizer  primitive.ObjectID
	Limit      int64
}

// List returns matching events ordered by start date.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Event, error) {
	status := f.Status
	if status == "" {
		status = models.EventStatusPublished
	}
	visibility := f.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	filter := bson.M{"status": status, "visibility": visibility}
	if f.City != "" {
		filter["location.city"] = normalize.Name(f.City)
	}
	if f.Category != "" {
		filter["category"] = strings.ToLower(strings.TrimSpace(f.Category))
	}
	if !f.Organizer.IsZero() {
		filter["organizer"] = f.Organizer
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
