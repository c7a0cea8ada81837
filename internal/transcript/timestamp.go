package transcript

import (
	"fmt"
	"regexp"
)

var timestampRe = regexp.MustCompile(`^(\d{1,2}:)?(\d{1,2}):(\d{2})$`)

// ValidTimestamp reports whether ts is in MM:SS or HH:MM:SS form with minutes
// and seconds under 60.
func ValidTimestamp(ts string) bool {
	m := timestampRe.FindStringSubmatch(ts)
	if m == nil {
		return false
	}
	var mi, s int
	fmt.Sscanf(m[2], "%d", &mi)
	fmt.Sscanf(m[3], "%d", &s)
	return mi < 60 && s < 60
}

// ToSeconds converts a MM:SS or HH:MM:SS timestamp to total seconds.
func ToSeconds(ts string) (float64, error) {
	m := timestampRe.FindStringSubmatch(ts)
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q: expected MM:SS or HH:MM:SS", ts)
	}
	var h, mi, s int
	if m[1] != "" {
		fmt.Sscanf(m[1], "%d:", &h)
	}
	fmt.Sscanf(m[2], "%d", &mi)
	fmt.Sscanf(m[3], "%d", &s)
	return float64(h*3600 + mi*60 + s), nil
}

// FormatSeconds renders seconds as MM:SS, or H:MM:SS above one hour.
func FormatSeconds(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Duration returns end-start in seconds.
func Duration(start, end string) (float64, error) {
	a, err := ToSeconds(start)
	if err != nil {
		return 0, err
	}
	b, err := ToSeconds(end)
	if err != nil {
		return 0, err
	}
	return b - a, nil
}
