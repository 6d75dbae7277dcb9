package conversation

import (
	"regexp"
	"strings"
)

var (
	closedThinkRE  = regexp.MustCompile(`(?is)<think>.*?</think>`)
	leadingCloseRE = regexp.MustCompile(`(?is)^.*?</think>`)
	trailingOpenRE = regexp.MustCompile(`(?is)<think>.*$`)
)

// StripReasoning removes <think> blocks from model output, including a
// truncated block that lost its opening or closing tag.
func StripReasoning(text string) string {
	text = closedThinkRE.ReplaceAllString(text, "")
	text = leadingCloseRE.ReplaceAllString(text, "")
	text = trailingOpenRE.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
