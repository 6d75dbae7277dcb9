package archive

import (
	"time"

	"github.com/wolfman30/wpchat-gateway/internal/conversation"
)

const recordVersion = "1.0"

// TranscriptRecord is the document written to S3 when a user's history is
// compacted into a summary.
type TranscriptRecord struct {
	Version        string                 `json:"version"`
	BusinessNumber string                 `json:"business_number"`
	WANumber       string                 `json:"wa_number"`
	WANumberHash   string                 `json:"wa_number_hash"`
	ArchivedAt     time.Time              `json:"archived_at"`
	MessageCount   int                    `json:"message_count"`
	PriorSummary   string                 `json:"prior_summary,omitempty"`
	Summary        string                 `json:"summary"`
	Messages       []conversation.Message `json:"messages"`
}

// ManifestEntry is one line of the monthly JSONL manifest.
type ManifestEntry struct {
	S3Key          string `json:"s3_key"`
	BusinessNumber string `json:"business_number"`
	WANumberHash   string `json:"wa_number_hash"`
	MessageCount   int    `json:"message_count"`
	ArchivedAt     string `json:"archived_at"`
}
