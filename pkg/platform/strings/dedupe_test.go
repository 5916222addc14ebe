package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single broker", "kafka:9092", []string{"kafka:9092"}},
		{"trims and dedupes", " a:9092, b:9092 ,,a:9092", []string{"a:9092", "b:9092"}},
		{"keeps case distinct", "http://Local,http://local", []string{"http://Local", "http://local"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestDedupeAndTrim(t *testing.T) {
	assert.Nil(t, DedupeAndTrim(nil))
	assert.Equal(t, []string{}, DedupeAndTrim([]string{}))
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  ", "bar"}))
}
