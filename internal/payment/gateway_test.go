package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		major string
		minor int64
	}{
		{"394", 39400},
		{"99.50", 9950},
		{"0", 0},
		{"1080.05", 108005},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.minor, ToMinorUnits(decimal.RequireFromString(tc.major)), tc.major)
	}
}
