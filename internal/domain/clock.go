package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// hhmmRe accepts 24-hour clock strings; a single-digit hour is allowed
// ("8:05"), minutes are always two digits.
var hhmmRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ValidHHMM reports whether s is a well-formed HH:MM clock string.
func ValidHHMM(s string) bool {
	return hhmmRe.MatchString(s)
}

// NormalizeHHMM returns the zero-padded form of a valid HH:MM string,
// so "8:05" compares equal to "08:05". Invalid input returns an error.
func NormalizeHHMM(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !ValidHHMM(s) {
		return "", fmt.Errorf("invalid HH:MM value: %q", s)
	}
	parts := strings.SplitN(s, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// ClockHHMM formats the instant as a zero-padded HH:MM wall-clock string in
// the given location. All schedule matching goes through this single zone.
func ClockHHMM(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("15:04")
}
