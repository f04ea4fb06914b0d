package clans_test

import (
	"context"
	"sync"

	clanstore "github.com/siberialife/siberialife/internal/app/store/clans"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memClans keeps clans in memory and enforces the same uniqueness and
// derived-field rules as the Mongo store.
type memClans struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]models.Clan
	saves int
}

func newMemClans() *memClans {
	return &memClans{byID: make(map[primitive.ObjectID]models.Clan)}
}

func (m *memClans) clash(c models.Clan) bool {
	for id, other := range m.byID {
		if id != c.ID && (other.NameCI == c.NameCI || other.Slug == c.Slug) {
			return true
		}
	}
	return false
}

func clone(c models.Clan) models.Clan {
	c.Members = append([]models.ClanMember(nil), c.Members...)
	return c
}

func (m *memClans) Create(_ context.Context, c models.Clan) (models.Clan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = primitive.NewObjectID()
	clanstore.NormalizeNewClan(&c)
	if err := clanstore.Validate(c); err != nil {
		return models.Clan{}, err
	}
	if m.clash(c) {
		return models.Clan{}, clanstore.ErrDuplicate
	}
	m.byID[c.ID] = clone(c)
	return c, nil
}

func (m *memClans) Save(_ context.Context, c *models.Clan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clanstore.NormalizeClan(c)
	if err := clanstore.Validate(*c); err != nil {
		return err
	}
	if _, ok := m.byID[c.ID]; !ok {
		return clanstore.ErrNotFound
	}
	if m.clash(*c) {
		return clanstore.ErrDuplicate
	}
	m.byID[c.ID] = clone(*c)
	m.saves++
	return nil
}

func (m *memClans) GetByIDOrSlug(_ context.Context, key string) (*models.Clan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		if c, ok := m.byID[oid]; ok {
			c = clone(c)
			return &c, nil
		}
		return nil, clanstore.ErrNotFound
	}
	for _, c := range m.byID {
		if c.Slug == key {
			c = clone(c)
			return &c, nil
		}
	}
	return nil, clanstore.ErrNotFound
}

func (m *memClans) List(_ context.Context, f clanstore.ListFilter) ([]models.Clan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Clan{}
	for _, c := range m.byID {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		out = append(out, clone(c))
	}
	return out, nil
}

func (m *memClans) stored(id primitive.ObjectID) models.Clan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.byID[id])
}
