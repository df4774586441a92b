package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloatingRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		want    FloatingRule
		wantErr bool
	}{
		{
			name: "fourth thursday of november",
			rule: "4th Thursday of November",
			want: FloatingRule{Ordinal: 4, Weekday: time.Thursday, Month: time.November},
		},
		{
			name: "last friday of december",
			rule: "last Friday of December",
			want: FloatingRule{Ordinal: -1, Weekday: time.Friday, Month: time.December},
		},
		{
			name: "case and spacing are forgiven",
			rule: "  1ST monday OF january ",
			want: FloatingRule{Ordinal: 1, Weekday: time.Monday, Month: time.January},
		},
		{
			name:    "missing of",
			rule:    "4th Thursday November",
			wantErr: true,
		},
		{
			name:    "unknown ordinal",
			rule:    "6th Thursday of November",
			wantErr: true,
		},
		{
			name:    "unknown weekday",
			rule:    "4th Someday of November",
			wantErr: true,
		},
		{
			name:    "empty rule",
			rule:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFloatingRule(tt.rule)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestFloatingRule_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		year    int
		want    time.Time
		wantErr bool
	}{
		{
			name: "fourth thursday of november 2026",
			rule: "4th Thursday of November",
			year: 2026,
			want: time.Date(2026, 11, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "fourth thursday of november 2025",
			rule: "4th Thursday of November",
			year: 2025,
			want: time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last friday of december 2026",
			rule: "last Friday of December",
			year: 2026,
			want: time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "fifth monday of february 2026 does not exist",
			rule:    "5th Monday of February",
			year:    2026,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseFloatingRule(tt.rule)
			require.NoError(t, err)

			got, err := rule.Resolve(tt.year)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, rule.Weekday, got.Weekday())
		})
	}
}
