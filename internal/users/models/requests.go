package models

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "restapidemo/pkg/domain-errors"
)

const (
	MaxUsernameLength = 64
	MaxNameLength     = 100
	MaxEmailLength    = 255
	PhoneNumberLength = 10
)

// emailPattern is the address format the web client accepts.
const emailPattern = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`

// controlPattern matches C0/C1 control characters, NUL included, which
// Postgres refuses to store in TEXT.
const controlPattern = `\p{Cc}`

// Field keys used in validation errors, matching the JSON names.
const (
	FieldUsername    = "username"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldEmail       = "email"
	FieldPhoneNumber = "phoneNumber"
)

// UserRequest is the payload for creating a user and for replacing one on
// update. Unknown JSON fields, such as an "id" echoed back by the client,
// are ignored.
type UserRequest struct {
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// Normalize trims surrounding whitespace and lowercases the email.
func (r *UserRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

// Validate reports every failing field at once. Call Normalize first.
func (r *UserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	fields := map[string]string{}

	switch {
	case govalidator.IsNull(r.Username):
		fields[FieldUsername] = "Username is required"
	case govalidator.Matches(r.Username, controlPattern):
		fields[FieldUsername] = "Username must not contain control characters"
	case !govalidator.StringLength(r.Username, "1", strconv.Itoa(MaxUsernameLength)):
		fields[FieldUsername] = "Username must be at most 64 characters"
	}

	switch {
	case govalidator.IsNull(r.FirstName):
		fields[FieldFirstName] = "First name is required"
	case govalidator.Matches(r.FirstName, controlPattern):
		fields[FieldFirstName] = "First name must not contain control characters"
	case !govalidator.StringLength(r.FirstName, "1", strconv.Itoa(MaxNameLength)):
		fields[FieldFirstName] = "First name must be at most 100 characters"
	}

	switch {
	case govalidator.IsNull(r.LastName):
		fields[FieldLastName] = "Last name is required"
	case govalidator.Matches(r.LastName, controlPattern):
		fields[FieldLastName] = "Last name must not contain control characters"
	case !govalidator.StringLength(r.LastName, "1", strconv.Itoa(MaxNameLength)):
		fields[FieldLastName] = "Last name must be at most 100 characters"
	}

	if len(r.Email) > MaxEmailLength || !govalidator.Matches(r.Email, emailPattern) {
		fields[FieldEmail] = "Invalid email address"
	}

	if len(r.PhoneNumber) != PhoneNumberLength || !govalidator.IsNumeric(r.PhoneNumber) {
		fields[FieldPhoneNumber] = "Phone number must be 10 digits"
	}

	if len(fields) > 0 {
		return dErrors.NewValidation("invalid user", fields)
	}
	return nil
}
