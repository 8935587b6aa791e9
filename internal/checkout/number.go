package checkout

import (
	"fmt"
	"strings"
	"time"
)

// FormatOrderNumber renders PREFIX-YYYY-NNNNN.
func FormatOrderNumber(prefix string, year int, seq int64) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "ORD"
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

func yearStart(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
