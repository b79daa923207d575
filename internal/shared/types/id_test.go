package types

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestParseIDCanonicalizes(t *testing.T) {
	const canonical = "a0b1c2d3-e4f5-4a6b-8c7d-9e0f1a2b3c4d"

	tests := []struct {
		name  string
		input string
	}{
		{"lowercase", canonical},
		{"uppercase", strings.ToUpper(canonical)},
		{"mixed case", "A0b1C2d3-E4f5-4A6b-8C7d-9E0f1A2b3C4d"},
		{"braces", "{" + canonical + "}"},
		{"urn", "urn:uuid:" + canonical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, ID(canonical), id)
		})
	}
}

func TestScan(t *testing.T) {
	raw := uuid.New()

	tests := []struct {
		name  string
		value any
		want  ID
	}{
		{"nil", nil, ""},
		{"string", raw.String(), ID(raw.String())},
		{"bytes", []byte(raw.String()), ID(raw.String())},
		{"binary", [16]byte(raw), ID(raw.String())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, id.Scan(tt.value))
			assert.Equal(t, tt.want, id)
		})
	}

	var id ID
	assert.Error(t, id.Scan(42))
}

func TestValueOfZeroIsNull(t *testing.T) {
	v, err := ID("").Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
