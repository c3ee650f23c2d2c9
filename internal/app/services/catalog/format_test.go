package catalog

import (
	"testing"
	"time"
)

func TestFormatViewCount(t *testing.T) {
	cases := map[string]string{
		"0":       "0",
		"999":     "999",
		"1000":    "1.0K",
		"15320":   "15.3K",
		"999999":  "1000.0K",
		"1000000": "1.0M",
		"2450000": "2.5M",
		"":        "0",
		"lots":    "0",
		" 1200 ":  "1.2K",
	}
	for in, want := range cases {
		if got := FormatViewCount(in); got != want {
			t.Errorf("FormatViewCount(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[string]string{
		"PT1H2M3S": "1:02:03",
		"PT1H":     "1:00:00",
		"PT12M5S":  "12:05",
		"PT45S":    "0:45",
		"PT3M":     "3:00",
		"P1D":      "0:00",
		"":         "0:00",
		"PT10H30M": "10:30:00",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{29 * 24 * time.Hour, "29 days ago"},
		{30 * 24 * time.Hour, "1 months ago"},
		{364 * 24 * time.Hour, "12 months ago"},
		{365 * 24 * time.Hour, "1 years ago"},
		{800 * 24 * time.Hour, "2 years ago"},
	}
	for _, tc := range cases {
		if got := TimeAgo(now.Add(-tc.ago), now); got != tc.want {
			t.Errorf("TimeAgo(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
	if got := TimeAgo(now.Add(time.Hour), now); got != "just now" {
		t.Errorf("future timestamp = %q", got)
	}
}
