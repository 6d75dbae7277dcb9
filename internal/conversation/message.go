package conversation

import (
	"context"
	"errors"
	"time"
)

// Stored message roles. The LLM boundary maps RoleBot to "assistant".
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ErrUserNotFound is returned when a write targets a user row that does not exist.
var ErrUserNotFound = errors.New("conversation: user not found")

// Message is one entry of a user's stored history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// User is the per-(wa_number, business_number) conversation record.
type User struct {
	WANumber        string
	BusinessNumber  string
	ProfileName     string
	LastInteraction time.Time
	Messages        []Message
	Summary         string
}

// Store persists conversation state. Writes are last-write-wins; callers that
// need a consistent read-modify-write must serialize on the user key.
type Store interface {
	FindOrCreate(ctx context.Context, waNumber, businessNumber, profileName string) (*User, error)
	GetHistory(ctx context.Context, waNumber, businessNumber string) ([]Message, string, error)
	AppendAndPersist(ctx context.Context, waNumber, businessNumber string, messages []Message) error
	ClearWithSummary(ctx context.Context, waNumber, businessNumber, summary string) error
}
