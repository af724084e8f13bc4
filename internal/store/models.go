package store

import (
	"encoding/json"
	"time"
)

// The reminder-times map and frequency list are stored document-style as
// JSON TEXT columns.

func marshalTimes(m map[string]string) string {
	if m == nil {
		m = map[string]string{}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func unmarshalTimes(s string) map[string]string {
	m := map[string]string{}
	if s == "" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func marshalFrequency(f []string) string {
	if f == nil {
		f = []string{}
	}
	b, _ := json.Marshal(f)
	return string(b)
}

func unmarshalFrequency(s string) []string {
	var f []string
	if s == "" {
		return f
	}
	_ = json.Unmarshal([]byte(s), &f)
	return f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
