package profile_test

import (
	"context"
	"strings"
	"sync"

	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memUsers is an in-memory stand-in for the user store.
type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.User
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{byID: make(map[primitive.ObjectID]models.User)}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) get(id primitive.ObjectID) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	return u, ok
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := m.get(id)
	if !ok {
		return nil, userstore.ErrNotFound
	}
	u.Password = ""
	return &u, nil
}

func (m *memUsers) GetByIDWithPassword(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := m.get(id)
	if !ok {
		return nil, userstore.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, upd userstore.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = strings.Join(strings.Fields(*upd.Name), " ")
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	m.byID[id] = u
	u.Password = ""
	return &u, nil
}

func (m *memUsers) SetAvatar(_ context.Context, id primitive.ObjectID, avatar string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	u.Avatar = avatar
	m.byID[id] = u
	u.Password = ""
	return &u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u.Password = hash
	m.byID[id] = u
	return nil
}
