package store

import (
	"context"
	"sort"
	"sync"

	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
	"restapidemo/pkg/platform/sentinel"
)

// InMemory keeps users in a map guarded by a RWMutex. Stored values are
// copied on the way in and out.
type InMemory struct {
	mu         sync.RWMutex
	users      map[domain.UserID]*models.User
	byUsername map[string]domain.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:      make(map[domain.UserID]*models.User),
		byUsername: make(map[string]domain.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrConflict
	}
	key := models.UsernameKey(user.Username)
	if _, taken := s.byUsername[key]; taken {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = user.Clone()
	s.byUsername[key] = user.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey := models.UsernameKey(existing.Username)
	newKey := models.UsernameKey(user.Username)
	if newKey != oldKey {
		if owner, taken := s.byUsername[newKey]; taken && owner != user.ID {
			return sentinel.ErrConflict
		}
		delete(s.byUsername, oldKey)
		s.byUsername[newKey] = user.ID
	}

	updated := user.Clone()
	updated.CreatedAt = existing.CreatedAt
	s.users[user.ID] = updated
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return user.Clone(), nil
}

// List returns users ordered by creation time, ties broken by id.
func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byUsername, models.UsernameKey(user.Username))
	delete(s.users, id)
	return nil
}
