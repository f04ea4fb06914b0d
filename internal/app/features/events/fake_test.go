package events_test

import (
	"context"
	"strconv"
	"strings"
	"sync"

	eventstore "github.com/siberialife/siberialife/internal/app/store/events"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memEvents is an in-memory event store applying the same normalization
// and slug suffixing as the Mongo store.
type memEvents struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Event
}

func newMemEvents() *memEvents {
	return &memEvents{byID: make(map[primitive.ObjectID]models.Event)}
}

func cloneEvent(e models.Event) models.Event {
	e.Participants = append([]models.EventParticipant(nil), e.Participants...)
	e.Reviews = append([]models.EventReview(nil), e.Reviews...)
	e.Category = append([]string(nil), e.Category...)
	return e
}

func (m *memEvents) slugTaken(id primitive.ObjectID, slug string) bool {
	for other, e := range m.byID {
		if other != id && e.Slug == slug {
			return true
		}
	}
	return false
}

func (m *memEvents) uniqueSlug(e *models.Event) error {
	base := e.Slug
	for n := 2; m.slugTaken(e.ID, e.Slug); n++ {
		if n > 5 {
			return eventstore.ErrDuplicateSlug
		}
		e.Slug = base + "-" + strconv.Itoa(n)
	}
	return nil
}

func (m *memEvents) Create(_ context.Context, e models.Event) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = primitive.NewObjectID()
	eventstore.NormalizeEvent(&e, "", true)
	if err := eventstore.Validate(e); err != nil {
		return models.Event{}, err
	}
	if err := m.uniqueSlug(&e); err != nil {
		return models.Event{}, err
	}
	m.byID[e.ID] = cloneEvent(e)
	return e, nil
}

func (m *memEvents) Save(_ context.Context, e *models.Event, prevTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	titleChanged := strings.TrimSpace(e.Title) != prevTitle
	eventstore.NormalizeEvent(e, prevTitle, false)
	if err := eventstore.Validate(*e); err != nil {
		return err
	}
	if _, ok := m.byID[e.ID]; !ok {
		return eventstore.ErrNotFound
	}
	if titleChanged {
		if err := m.uniqueSlug(e); err != nil {
			return err
		}
	}
	m.byID[e.ID] = cloneEvent(*e)
	return nil
}

func (m *memEvents) GetByIDOrSlug(_ context.Context, key string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		if e, ok := m.byID[oid]; ok {
			e = cloneEvent(e)
			return &e, nil
		}
		return nil, eventstore.ErrNotFound
	}
	for _, e := range m.byID {
		if e.Slug == key {
			e = cloneEvent(e)
			return &e, nil
		}
	}
	return nil, eventstore.ErrNotFound
}

func (m *memEvents) IncViews(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return eventstore.ErrNotFound
	}
	e.ViewCount++
	m.byID[id] = e
	return nil
}

func (m *memEvents) List(_ context.Context, f eventstore.ListFilter) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := f.Status
	if status == "" {
		status = models.EventStatusPublished
	}
	out := []models.Event{}
	for _, e := range m.byID {
		if e.Status == status && e.Visibility == f.Visibility {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (m *memEvents) stored(id primitive.ObjectID) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneEvent(m.byID[id])
}

type memStats struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *memStats) IncStat(_ context.Context, id primitive.ObjectID, stat string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[id.Hex()+"/"+stat] += delta
	return nil
}

func (m *memStats) get(id, stat string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[id+"/"+stat]
}
