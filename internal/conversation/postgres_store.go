package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps each user's history as a JSONB array on the users row.
type PostgresStore struct {
	pool   rowQuerier
	tracer trace.Tracer
}

// NewPostgresStore returns a Store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return newPostgresStoreWithQuerier(pool)
}

func newPostgresStoreWithQuerier(q rowQuerier) *PostgresStore {
	if q == nil {
		panic("conversation: querier required")
	}
	return &PostgresStore{pool: q, tracer: otel.Tracer("wpchat.internal.conversation.store")}
}

// FindOrCreate upserts the user row, refreshing profile name and last interaction.
func (s *PostgresStore) FindOrCreate(ctx context.Context, waNumber, businessNumber, profileName string) (*User, error) {
	ctx, span := s.startSpan(ctx, "conversation.find_or_create", waNumber, businessNumber)
	defer span.End()

	query := `
		INSERT INTO users (wa_number, business_number, profile_name, summary, messages, last_interaction)
		VALUES ($1, $2, $3, '', '[]'::jsonb, now())
		ON CONFLICT (wa_number, business_number)
		DO UPDATE SET profile_name = EXCLUDED.profile_name,
			last_interaction = now()
		RETURNING wa_number, business_number, profile_name, last_interaction, messages, summary
	`
	var (
		user User
		raw  []byte
	)
	if err := s.pool.QueryRow(ctx, query, waNumber, businessNumber, profileName).Scan(
		&user.WANumber,
		&user.BusinessNumber,
		&user.ProfileName,
		&user.LastInteraction,
		&raw,
		&user.Summary,
	); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: upsert user: %w", err)
	}
	messages, err := decodeMessages(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	user.Messages = messages
	return &user, nil
}

// GetHistory returns the stored messages and summary. An unknown user has an
// empty history.
func (s *PostgresStore) GetHistory(ctx context.Context, waNumber, businessNumber string) ([]Message, string, error) {
	ctx, span := s.startSpan(ctx, "conversation.get_history", waNumber, businessNumber)
	defer span.End()

	query := `SELECT messages, summary FROM users WHERE wa_number = $1 AND business_number = $2`
	var (
		raw     []byte
		summary string
	)
	if err := s.pool.QueryRow(ctx, query, waNumber, businessNumber).Scan(&raw, &summary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []Message{}, "", nil
		}
		span.RecordError(err)
		return nil, "", fmt.Errorf("conversation: select history: %w", err)
	}
	messages, err := decodeMessages(raw)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}
	return messages, summary, nil
}

// AppendAndPersist replaces the stored sequence with messages.
func (s *PostgresStore) AppendAndPersist(ctx context.Context, waNumber, businessNumber string, messages []Message) error {
	ctx, span := s.startSpan(ctx, "conversation.persist_history", waNumber, businessNumber)
	defer span.End()

	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("conversation: marshal history: %w", err)
	}
	query := `
		UPDATE users
		SET messages = $3::jsonb, last_interaction = now()
		WHERE wa_number = $1 AND business_number = $2
	`
	return s.exec(ctx, span, "persist history", query, waNumber, businessNumber, data)
}

// ClearWithSummary empties the history and stores summary in one statement.
func (s *PostgresStore) ClearWithSummary(ctx context.Context, waNumber, businessNumber, summary string) error {
	ctx, span := s.startSpan(ctx, "conversation.clear_with_summary", waNumber, businessNumber)
	defer span.End()

	query := `
		UPDATE users
		SET messages = '[]'::jsonb, summary = $3, last_interaction = now()
		WHERE wa_number = $1 AND business_number = $2
	`
	return s.exec(ctx, span, "clear history", query, waNumber, businessNumber, summary)
}

func (s *PostgresStore) exec(ctx context.Context, span trace.Span, action, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: %s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) startSpan(ctx context.Context, name, waNumber, businessNumber string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("wpchat.wa_number", waNumber),
		attribute.String("wpchat.business_number", businessNumber),
	)
	return ctx, span
}

func decodeMessages(raw []byte) ([]Message, error) {
	messages := []Message{}
	if len(raw) == 0 {
		return messages, nil
	}
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("conversation: decode history: %w", err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}
