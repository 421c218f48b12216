package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdAndVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    IdAndVersion
		wantErr bool
	}{
		{name: "syn prefix", input: "syn123", want: NewID(123)},
		{name: "upper prefix", input: "SYN123", want: NewID(123)},
		{name: "t prefix", input: "t123", want: NewID(123)},
		{name: "bare number", input: "123", want: NewID(123)},
		{name: "with version", input: "syn123.4", want: NewIDWithVersion(123, 4)},
		{name: "t with version", input: "t123.4", want: NewIDWithVersion(123, 4)},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "synabc", wantErr: true},
		{name: "bad version", input: "syn1.x", wantErr: true},
		{name: "zero version", input: "syn1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdAndVersion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdAndVersionRendering(t *testing.T) {
	assert.Equal(t, "syn123", NewID(123).String())
	assert.Equal(t, "syn123.4", NewIDWithVersion(123, 4).String())
	assert.Equal(t, "T123", NewID(123).PhysicalTableName())
	assert.Equal(t, "T123_4", NewIDWithVersion(123, 4).PhysicalTableName())
}

func TestIdAndVersionEquality(t *testing.T) {
	seen := map[IdAndVersion]bool{NewID(1): true}
	assert.True(t, seen[MustParseIdAndVersion("syn1")])
	assert.False(t, seen[MustParseIdAndVersion("syn1.1")])
}
