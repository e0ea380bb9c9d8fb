package visit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageParams(t *testing.T) {
	tests := []struct {
		name       string
		limitRaw   string
		offsetRaw  string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", "", 1000, 0},
		{"valid values", "50", "100", 50, 100},
		{"negative limit falls back", "-1", "0", 1000, 0},
		{"zero limit falls back", "0", "", 1000, 0},
		{"limit over cap falls back", "100000", "", 1000, 0},
		{"negative offset clamped", "50", "-5", 50, 0},
		{"garbage ignored", "abc", "xyz", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := pageParams(tt.limitRaw, tt.offsetRaw)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
