package messaging

import "strings"

// WithPlus returns value with exactly one leading "+". Other characters are
// left as they are.
func WithPlus(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return "+" + strings.TrimLeft(value, "+")
}

// Digits strips everything except 0-9.
func Digits(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}
