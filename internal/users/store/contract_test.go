package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
	"restapidemo/pkg/platform/sentinel"
)

// contractSuite holds the behavior every Store implementation shares.
// Concrete suites embed it and set newStore.
type contractSuite struct {
	suite.Suite
	ctx      context.Context
	store    Store
	newStore func() Store
	clock    time.Time
}

func (s *contractSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.store = s.newStore()
}

func (s *contractSuite) newUser(username string) *models.User {
	s.clock = s.clock.Add(time.Second)
	return models.NewUser(domain.NewUserID(), &models.UserRequest{
		Username:    username,
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       username + "@example.com",
		PhoneNumber: "5551234567",
	}, s.clock)
}

func (s *contractSuite) TestCreateAndFind() {
	s.Run("round trips every field", func() {
		user := s.newUser("roundtrip")
		s.Require().NoError(s.store.Create(s.ctx, user))

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user, found)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, domain.NewUserID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *contractSuite) TestUsernameUniqueness() {
	s.Run("rejects duplicate username", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("dup")))
		s.ErrorIs(s.store.Create(s.ctx, s.newUser("dup")), sentinel.ErrConflict)
	})

	s.Run("comparison ignores case", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("MixedCase")))
		s.ErrorIs(s.store.Create(s.ctx, s.newUser("mixedcase")), sentinel.ErrConflict)
	})

	s.Run("comparison folds non-ASCII letters", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newUser("Émile")))
		s.ErrorIs(s.store.Create(s.ctx, s.newUser("émile")), sentinel.ErrConflict)
	})

	s.Run("update cannot take another user's name", func() {
		a := s.newUser("alpha")
		b := s.newUser("bravo")
		s.Require().NoError(s.store.Create(s.ctx, a))
		s.Require().NoError(s.store.Create(s.ctx, b))

		b.Username = "ALPHA"
		s.ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrConflict)
	})

	s.Run("update may change case of own name", func() {
		u := s.newUser("charlie")
		s.Require().NoError(s.store.Create(s.ctx, u))

		u.Username = "Charlie"
		s.Require().NoError(s.store.Update(s.ctx, u))
		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("Charlie", found.Username)
	})

	s.Run("renamed-away username becomes free", func() {
		u := s.newUser("delta")
		s.Require().NoError(s.store.Create(s.ctx, u))
		u.Username = "delta2"
		s.Require().NoError(s.store.Update(s.ctx, u))

		s.NoError(s.store.Create(s.ctx, s.newUser("delta")))
	})
}

func (s *contractSuite) TestUpdate() {
	s.Run("persists mutable fields", func() {
		u := s.newUser("echo")
		s.Require().NoError(s.store.Create(s.ctx, u))

		u.Apply(&models.UserRequest{
			Username:    "echo",
			FirstName:   "Eve",
			LastName:    "Echo",
			Email:       "eve@example.com",
			PhoneNumber: "0123456789",
		}, s.clock.Add(time.Hour))
		s.Require().NoError(s.store.Update(s.ctx, u))

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u, found)
	})

	s.Run("unknown id is not found", func() {
		s.ErrorIs(s.store.Update(s.ctx, s.newUser("ghost")), sentinel.ErrNotFound)
	})
}

func (s *contractSuite) TestListOrder() {
	first := s.newUser("first")
	second := s.newUser("second")
	third := s.newUser("third")
	for _, u := range []*models.User{third, first, second} {
		s.Require().NoError(s.store.Create(s.ctx, u))
	}

	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal([]string{"first", "second", "third"}, []string{users[0].Username, users[1].Username, users[2].Username})
}

func (s *contractSuite) TestListEmpty() {
	users, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(users)
	s.Empty(users)
}

func (s *contractSuite) TestDelete() {
	u := s.newUser("foxtrot")
	s.Require().NoError(s.store.Create(s.ctx, u))

	s.Require().NoError(s.store.Delete(s.ctx, u.ID))
	_, err := s.store.FindByID(s.ctx, u.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, u.ID), sentinel.ErrNotFound)
	s.NoError(s.store.Create(s.ctx, s.newUser("foxtrot")), "deleted username is reusable")
}
