package scheduling

import (
	"testing"
	"time"
)

func TestNormalizeUTCTruncatesToMinute(t *testing.T) {
	in := time.Date(2026, 3, 10, 9, 15, 42, 999999999, time.UTC)
	got := NormalizeUTC(in)
	want := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeUTCConvertsZonedInput(t *testing.T) {
	zone := time.FixedZone("ART", -3*60*60)
	in := time.Date(2026, 3, 10, 6, 30, 15, 0, zone)
	got := NormalizeUTC(in)
	want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Fatalf("result not in UTC: %v", got.Location())
	}
}

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
		fails bool
	}{
		{
			name:  "rfc3339 with offset converts to UTC",
			value: "2026-03-10T06:30:00-03:00",
			want:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 zulu",
			value: "2026-03-10T09:30:00Z",
			want:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "zone-less is taken as UTC, not local",
			value: "2026-03-10T09:30:00",
			want:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "zone-less without seconds",
			value: "2026-03-10T09:30",
			want:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "seconds are floored",
			value: "2026-03-10T09:30:59Z",
			want:  time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "garbage rejected",
			value: "next tuesday",
			fails: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStartTime(tt.value)
			if tt.fails {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
