package webhook

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	eventMessageReceived = "message_received"
	messageTypeText      = "text"
	unknownProfileName   = "Unknown"
)

// Event is the inbound provider webhook body.
type Event struct {
	Event    string          `json:"event"`
	From     string          `json:"from"`
	Contacts *Contacts       `json:"contacts,omitempty"`
	Messages *InboundMessage `json:"messages,omitempty"`
}

type Contacts struct {
	ProfileName string `json:"profileName"`
	Recipient   string `json:"recipient"`
}

type InboundMessage struct {
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
	Timestamp Timestamp    `json:"timestamp"`
}

type TextContent struct {
	Body string `json:"body"`
}

// Timestamp accepts unix seconds or milliseconds (number or string) and
// RFC 3339 strings. Raw keeps the value as sent for event ids.
type Timestamp struct {
	Raw  string
	Time time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	raw = strings.TrimSpace(raw)
	*t = Timestamp{Raw: raw, Time: parseTimestamp(raw)}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

// Unix values below 1e12 are seconds; above are milliseconds. Negative values
// and values past year 9999 yield the zero time.
const maxUnixMillis = 253402300799999

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		switch {
		case math.IsNaN(n) || n < 0 || n > maxUnixMillis:
			return time.Time{}
		case n < 1e12:
			sec, frac := math.Modf(n)
			return time.Unix(int64(sec), int64(frac*1e9)).UTC()
		default:
			return time.UnixMilli(int64(n)).UTC()
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}

func (e *Event) profileName() string {
	if e.Contacts != nil && strings.TrimSpace(e.Contacts.ProfileName) != "" {
		return e.Contacts.ProfileName
	}
	return unknownProfileName
}

func (e *Event) recipient() string {
	if e.Contacts == nil {
		return ""
	}
	return strings.TrimSpace(e.Contacts.Recipient)
}

func (e *Event) body() string {
	if e.Messages == nil || e.Messages.Text == nil {
		return ""
	}
	return e.Messages.Text.Body
}
