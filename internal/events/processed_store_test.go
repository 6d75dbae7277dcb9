package events

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)
	eventID := "15550001111:15551230000:1767225600"

	mock.ExpectExec("INSERT INTO processed_events").WithArgs(ProviderWhatsApp, eventID).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(context.Background(), ProviderWhatsApp, eventID)
	if err != nil || !ok {
		t.Fatalf("expected mark processed success, got %v %v", ok, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs(ProviderWhatsApp, eventID).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = store.MarkProcessed(context.Background(), ProviderWhatsApp, eventID)
	if err != nil || ok {
		t.Fatalf("expected duplicate claim to report false, got %v %v", ok, err)
	}

	mock.ExpectExec("DELETE FROM processed_events").WithArgs(ProviderWhatsApp, eventID).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := store.Forget(context.Background(), ProviderWhatsApp, eventID); err != nil {
		t.Fatalf("forget: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessedStoreErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	store := newProcessedStoreWithExec(mock)

	mock.ExpectExec("INSERT INTO processed_events").WillReturnError(errors.New("db down"))
	if _, err := store.MarkProcessed(context.Background(), ProviderWhatsApp, "x"); err == nil {
		t.Fatal("expected error")
	}
	mock.ExpectExec("DELETE FROM processed_events").WillReturnError(errors.New("db down"))
	if err := store.Forget(context.Background(), ProviderWhatsApp, "x"); err == nil {
		t.Fatal("expected error")
	}
}
