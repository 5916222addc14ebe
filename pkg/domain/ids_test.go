package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "restapidemo/pkg/domain-errors"
)

// TestParseUserID_Invariants: IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUserID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

// Path parameters reach ParseUserID straight from the URL.
func TestParseUserID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserIDJSON(t *testing.T) {
	id := NewUserID()

	encoded, err := json.Marshal(struct {
		ID UserID `json:"id"`
	}{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(encoded))

	var decoded struct {
		ID UserID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, id, decoded.ID)

	err = json.Unmarshal([]byte(`{"id":"nope"}`), &decoded)
	require.Error(t, err)
}
