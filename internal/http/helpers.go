package http

import (
	"strings"
	"time"

	"duo/internal/core"
)

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse(time.DateOnly, strings.TrimSpace(dateStr))
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.DateOf(parsedTime), nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
