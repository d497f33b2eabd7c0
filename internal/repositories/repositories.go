package repositories

import "time"

// Timestamps are stored as UTC RFC3339 text with nanoseconds so records round-trip exactly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
