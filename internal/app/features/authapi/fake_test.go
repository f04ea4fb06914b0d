package authapi_test

import (
	"context"
	"sync"
	"time"

	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memUsers is an in-memory stand-in for the user store.
type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[primitive.ObjectID]models.User)}
}

func (m *memUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	if u.Role == "" {
		u.Role = models.RoleParticipant
	}
	u.Tokens = models.DefaultUserTokens
	u.JoinDate = time.Now().UTC()
	if err := userstore.Validate(u); err != nil {
		return models.User{}, err
	}
	m.byID[u.ID] = u
	u.Password = ""
	return u, nil
}

func (m *memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	u.Password = ""
	return &u, nil
}

func (m *memUsers) GetByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (m *memUsers) delete(id primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}
