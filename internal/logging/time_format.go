package logging

import "time"

const (
	consoleTimestampLayout = "2006-01-02 15:04:05"
	jsonTimestampLayout    = time.RFC3339Nano
)

// formatTimestamp renders console timestamps in local time.
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimestampLayout)
}
