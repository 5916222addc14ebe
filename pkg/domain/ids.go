// Package domain holds identifier primitives shared across modules.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "restapidemo/pkg/domain-errors"
)

// UserID identifies a user. It is a distinct type so a user ID cannot be
// passed where another identifier is expected.
type UserID uuid.UUID

// EventID identifies a published lifecycle event.
type EventID uuid.UUID

// NewUserID returns a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewEventID returns a random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EventID) String() string { return uuid.UUID(id).String() }

// MarshalText encodes the ID in canonical UUID form.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts any form ParseUserID accepts.
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id EventID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// ParseUserID parses s as a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	// uuid.Parse also accepts urn and braced forms up to 45 bytes.
	if len(s) > 45 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	return u, nil
}
