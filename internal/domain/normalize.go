package domain

import "strings"

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ResolveID returns the trimmed input id, or a freshly generated one when blank.
func ResolveID(raw string, generate func() string) string {
	if id := strings.TrimSpace(raw); id != "" {
		return id
	}
	return generate()
}
