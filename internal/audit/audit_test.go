package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewLog(db)
	turn := Turn{
		BusinessNumber: "15550001111",
		WANumber:       "15551230000",
		Summarized:     true,
		MessageCount:   2,
		DeliveryStatus: DeliverySent,
		Tools:          []string{"get_clinics"},
	}

	mock.ExpectExec("INSERT INTO conversation_audit").
		WithArgs(sqlmock.AnyArg(), "15550001111", "15551230000", true, 2, DeliverySent, "{\"get_clinics\"}", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, log.Record(context.Background(), turn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO conversation_audit").WillReturnError(errors.New("db down"))

	err = NewLog(db).Record(context.Background(), Turn{DeliveryStatus: DeliveryFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit: record turn")
}

func TestLogRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "business_number", "wa_number", "summarized", "message_count", "delivery_status", "tools", "created_at"}).
		AddRow("a1", "15550001111", "15551230000", false, 4, DeliverySent, "{get_clinics,check_availability}", created)
	mock.ExpectQuery("FROM conversation_audit").WithArgs("15550001111", defaultRecentLimit).WillReturnRows(rows)

	turns, err := NewLog(db).Recent(context.Background(), "15550001111", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"get_clinics", "check_availability"}, turns[0].Tools)
	assert.Equal(t, created, turns[0].CreatedAt)
}

type stubReader struct {
	turns []Turn
	err   error
	limit int
}

func (s *stubReader) Recent(_ context.Context, _ string, limit int) ([]Turn, error) {
	s.limit = limit
	return s.turns, s.err
}

func TestHandlerRecent(t *testing.T) {
	reader := &stubReader{turns: []Turn{{ID: "a1", DeliveryStatus: DeliverySkipped, Tools: []string{}}}}
	r := chi.NewRouter()
	r.Mount("/audit", NewHandler(reader, nil).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/15550001111?limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, reader.limit)
	assert.Contains(t, rec.Body.String(), `"delivery_status":"skipped"`)

	reader.err = errors.New("db down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/15550001111", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch audit log"}`, rec.Body.String())
}
