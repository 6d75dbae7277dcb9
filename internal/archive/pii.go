package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/wolfman30/wpchat-gateway/internal/conversation"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,}\d`)
)

// Dates such as 2026-03-02 carry eight digits; phone numbers carry more.
const minPhoneDigits = 9

// HashPhone returns the hex-encoded SHA-256 hash of a phone number.
func HashPhone(phone string) string {
	h := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(h[:])
}

// ScrubPII replaces emails with [EMAIL] and phone numbers with [PHONE].
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllStringFunc(text, func(match string) string {
		if countDigits(match) < minPhoneDigits {
			return match
		}
		return "[PHONE]"
	})
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// scrubbed returns a copy of msgs with PII removed from every body.
func scrubbed(msgs []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, len(msgs))
	for i, m := range msgs {
		m.Content = ScrubPII(m.Content)
		out[i] = m
	}
	return out
}
