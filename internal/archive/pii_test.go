package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/wpchat-gateway/internal/conversation"
)

func TestHashPhone(t *testing.T) {
	h1 := HashPhone("919876543210")
	h2 := HashPhone("919876543210")
	h3 := HashPhone("15551234567")

	assert.Equal(t, h1, h2, "same input should produce same hash")
	assert.NotEqual(t, h1, h3, "different input should produce different hash")
	assert.Len(t, h1, 64, "SHA-256 hex should be 64 chars")
}

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "contact me at ana@example.com please", "contact me at [EMAIL] please"},
		{"us phone", "call me at (330) 333-2654", "call me at [PHONE]"},
		{"international", "my number is +91 98765 43210", "my number is [PHONE]"},
		{"both", "email: a@b.com phone: 330-333-2654", "email: [EMAIL] phone: [PHONE]"},
		{"time kept", "book me at 09:30 AM on 2026-03-02", "book me at 09:30 AM on 2026-03-02"},
		{"name kept", "My name is Ana Rao", "My name is Ana Rao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestScrubbedCopiesMessages(t *testing.T) {
	msgs := []conversation.Message{
		{Role: conversation.RoleUser, Content: "my email is test@test.com"},
		{Role: conversation.RoleBot, Content: "Got it!"},
	}
	out := scrubbed(msgs)
	assert.Equal(t, "my email is [EMAIL]", out[0].Content)
	assert.Equal(t, "Got it!", out[1].Content)
	assert.Equal(t, "my email is test@test.com", msgs[0].Content, "input must not be modified")
}
