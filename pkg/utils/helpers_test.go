package utils

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellText(t *testing.T) {
	assert.Equal(t, "", CellText(nil))
	assert.Equal(t, "/home", CellText("/home"))
	assert.Equal(t, "123.4", CellText(json.Number("123.4")))
	assert.Equal(t, "0.0000123", CellText(0.0000123))
	assert.Equal(t, "42", CellText(42))
	assert.Equal(t, `["a"]`, CellText([]string{"a"}))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{json.Number("30"), 30, true},
		{"3e+01", 30, true},
		{" 12.5 ", 12.5, true},
		{"12ms", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{math.Inf(1), 0, false},
		{int64(7), 7, true},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%v", tt.in)
		}
	}
}

func TestFormatFixedAndRound(t *testing.T) {
	assert.Equal(t, "0.000012", FormatFixed(0.0000123, 6))
	assert.Equal(t, "2500.00", FormatFixed(2500, 2))
	assert.Equal(t, 1.3, Round(1.25, 1))
	assert.Equal(t, -1.3, Round(-1.25, 1))
	assert.Equal(t, 2500.0, Round(2500, 2))
}
