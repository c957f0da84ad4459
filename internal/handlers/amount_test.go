package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountMinor(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12.3", 1230, false},
		{"12", 1200, false},
		{"0.05", 5, false},
		{".50", 50, false},
		{"-3.25", -325, false},
		{" 100.00 ", 10000, false},
		{"", 0, true},
		{"12.345", 0, true},
		{"abc", 0, true},
		{"-", 0, true},
		{".", 0, true},
		{"-.", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmountMinor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
