package timeparsing

import (
	"testing"
	"time"

	"github.com/steveyegge/trackdash/internal/types"
)

func TestParseNaturalLanguage(t *testing.T) {
	// Fixed reference time: Wednesday, January 15, 2025, 10:00:00 AM
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	tests := []struct {
		input   string
		wantDay int
		wantErr bool
	}{
		{input: "yesterday", wantDay: 14},
		{input: "tomorrow", wantDay: 16},
		{input: "next monday", wantDay: 20},
		{input: "xyzzy plugh", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNaturalLanguage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Year() != 2025 || got.Month() != time.January || got.Day() != tt.wantDay {
				t.Errorf("ParseNaturalLanguage(%q) = %v, want 2025-01-%02d", tt.input, got, tt.wantDay)
			}
		})
	}
}

// Compact durations must win over the natural-language layer.
func TestParseRelativeTime_LayerPrecedence(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	got, err := ParseRelativeTime("+1d", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("ParseRelativeTime(\"+1d\") = %v, want %v", got, want)
	}

	got, err = ParseRelativeTime("2025-01-20", now)
	if err != nil {
		t.Fatal(err)
	}
	if got.Day() != 20 || got.Hour() != 0 {
		t.Errorf("ParseRelativeTime(\"2025-01-20\") = %v, want midnight Jan 20", got)
	}
}

func TestParseSinceRejectsGarbage(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "   ", "xyzzy plugh"} {
		_, err := ParseSince(in, now)
		if err == nil {
			t.Errorf("ParseSince(%q) succeeded, want error", in)
			continue
		}
		if !types.IsInputValidation(err) {
			t.Errorf("ParseSince(%q) error %T is not a ValidationError", in, err)
		}
	}
}
