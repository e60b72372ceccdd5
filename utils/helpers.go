/*
Package utils provides helper functions for the tweet filter client.
*/
package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return time.Now().UTC().Format("20060102150405") + "-" + uuid.NewString()[:8]
}

// ParseIdentifiers splits free text into account identifiers.
// Entries are separated by newlines or commas; blanks are dropped and a leading "@" is removed.
func ParseIdentifiers(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	var ids []string
	for _, f := range fields {
		f = strings.TrimPrefix(strings.TrimSpace(f), "@")
		if f != "" {
			ids = append(ids, f)
		}
	}
	return ids
}

// ParseLimit parses a positive limit query value, falling back to def and capping at max
func ParseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
