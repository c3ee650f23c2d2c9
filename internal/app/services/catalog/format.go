package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRE = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// FormatViewCount renders a decimal count as "1.5M", "12.0K" or "999".
// Anything that does not parse as an integer renders as "0".
func FormatViewCount(raw string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "0"
	}
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatDuration renders an ISO-8601 duration ("PT1H2M3S") as "1:02:03", or
// "2:03" when there is no hour part.
func FormatDuration(iso string) string {
	m := durationRE.FindStringSubmatch(iso)
	if m == nil {
		return "0:00"
	}
	hours, minutes, seconds := m[1], m[2], m[3]
	if hours != "" {
		return fmt.Sprintf("%s:%s:%s", hours, padTwo(minutes), padTwo(seconds))
	}
	if minutes == "" {
		minutes = "0"
	}
	return fmt.Sprintf("%s:%s", minutes, padTwo(seconds))
}

func padTwo(s string) string {
	for len(s) < 2 {
		s = "0" + s
	}
	return s
}

// TimeAgo renders the distance between published and now in the coarsest
// whole unit. Months are 30 days and years 365 days.
func TimeAgo(published, now time.Time) string {
	secs := int64(now.Sub(published) / time.Second)
	switch {
	case secs < 60:
		return "just now"
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours ago", secs/3600)
	case secs < 2592000:
		return fmt.Sprintf("%d days ago", secs/86400)
	case secs < 31536000:
		return fmt.Sprintf("%d months ago", secs/2592000)
	default:
		return fmt.Sprintf("%d years ago", secs/31536000)
	}
}
