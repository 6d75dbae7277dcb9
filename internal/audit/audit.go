// Package audit records one row per completed webhook turn.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Delivery outcomes stored in conversation_audit.delivery_status.
const (
	DeliverySent    = "sent"
	DeliverySkipped = "skipped"
	DeliveryFailed  = "failed"
)

const defaultRecentLimit = 50

// Turn is an immutable record of one processed inbound message. Message
// bodies are not stored.
type Turn struct {
	ID             string    `json:"id"`
	BusinessNumber string    `json:"business_number"`
	WANumber       string    `json:"wa_number"`
	Summarized     bool      `json:"summarized"`
	MessageCount   int       `json:"message_count"`
	DeliveryStatus string    `json:"delivery_status"`
	Tools          []string  `json:"tools"`
	CreatedAt      time.Time `json:"created_at"`
}

// Log writes and reads conversation_audit.
type Log struct {
	db *sql.DB
}

// NewLog creates a new audit log.
func NewLog(db *sql.DB) *Log {
	if db == nil {
		panic("audit: db required")
	}
	return &Log{db: db}
}

// Record inserts turn, filling ID and CreatedAt when empty.
func (l *Log) Record(ctx context.Context, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.Tools == nil {
		turn.Tools = []string{}
	}

	query := `
		INSERT INTO conversation_audit (
			id, business_number, wa_number, summarized, message_count,
			delivery_status, tools, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.db.ExecContext(ctx, query,
		turn.ID,
		turn.BusinessNumber,
		turn.WANumber,
		turn.Summarized,
		turn.MessageCount,
		turn.DeliveryStatus,
		pq.Array(turn.Tools),
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record turn: %w", err)
	}
	return nil
}

// Recent returns the newest turns for a business, newest first.
func (l *Log) Recent(ctx context.Context, businessNumber string, limit int) ([]Turn, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultRecentLimit
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, business_number, wa_number, summarized, message_count,
			delivery_status, tools, created_at
		FROM conversation_audit
		WHERE business_number = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(
			&t.ID, &t.BusinessNumber, &t.WANumber, &t.Summarized, &t.MessageCount,
			&t.DeliveryStatus, pq.Array(&t.Tools), &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate turns: %w", err)
	}
	return turns, nil
}
