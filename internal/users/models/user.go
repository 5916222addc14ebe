package models

import (
	"strings"
	"time"

	"restapidemo/pkg/domain"
)

// User is the managed account record.
//
// Invariants:
//   - ID is assigned once by the service and never changes
//   - Username is unique across users, compared case-insensitively
//   - Email is stored lowercased
//   - CreatedAt is immutable after construction
type User struct {
	ID          domain.UserID `json:"id"`
	Username    string        `json:"username"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	Email       string        `json:"email"`
	PhoneNumber string        `json:"phoneNumber"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// UsernameKey is the form usernames are compared in. Stores index on it so
// uniqueness does not depend on the database's case folding.
func UsernameKey(username string) string {
	return strings.ToLower(username)
}

// NewUser builds a user from a normalized, validated request.
func NewUser(id domain.UserID, req *UserRequest, now time.Time) *User {
	now = Timestamp(now)
	return &User{
		ID:          id,
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply replaces the mutable fields with the request's values.
func (u *User) Apply(req *UserRequest, now time.Time) {
	u.Username = req.Username
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Email = req.Email
	u.PhoneNumber = req.PhoneNumber
	u.UpdatedAt = Timestamp(now)
}

// Clone returns a copy that shares no state with u.
func (u *User) Clone() *User {
	c := *u
	return &c
}

// Timestamp normalizes t to UTC at microsecond precision, the finest
// resolution every store keeps.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
