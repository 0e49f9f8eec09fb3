package repositories

import (
	"context"
	"testing"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSessionRepository_EnsureTableCreatesWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("information_schema\\.tables").WithArgs("booking_sessions").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS booking_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (SessionRepository{DB: db}).EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_EnsureTableSkipsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("information_schema\\.tables").WithArgs("booking_sessions").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("booking_sessions"))
	mock.ExpectQuery("information_schema\\.columns").WithArgs("booking_sessions", "receipt_json").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("receipt_json"))

	if err := (SessionRepository{DB: db}).EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_EnsureTableAddsReceiptColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("information_schema\\.tables").WithArgs("booking_sessions").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("booking_sessions"))
	mock.ExpectQuery("information_schema\\.columns").WithArgs("booking_sessions", "receipt_json").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectExec("ALTER TABLE booking_sessions ADD COLUMN receipt_json").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (SessionRepository{DB: db}).EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_SaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO booking_sessions").
		WithArgs("s-1", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := SessionRecord{
		ID: "s-1",
		State: models.PersistedState{
			Trip: models.TripParameters{Passengers: 2, Version: 4},
		},
	}
	if err := (SessionRepository{DB: db}).Save(context.Background(), rec); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_SaveRequiresID(t *testing.T) {
	err := (SessionRepository{}).Save(context.Background(), SessionRecord{ID: "  "})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSessionRepository_LoadRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	state := `{"trip":{"pickup":{"latitude":51.47,"longitude":-0.45,"address":"Heathrow Airport"},"dropoff":null,"stops":[],"date":"","time":"","passengers":2,"checkedLuggage":1,"handLuggage":0,"selectedVehicle":null,"version":6},"fareQuote":{"vehicleOptions":[{"id":"sedan","name":"Saloon","capacity":{"passengers":4,"luggage":2},"price":{"amount":55,"currency":"GBP"}}],"journey":{"distance_miles":14,"duration_minutes":35},"notifications":[],"version":6}}`
	receipt := `{"bookingId":"TB-1","trip":{"passengers":2},"details":{"fullName":"Ann Smith"},"createdAt":"2026-10-01T10:00:00Z"}`
	now := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, state_json, receipt_json").WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "state_json", "receipt_json", "created_at", "updated_at"}).
			AddRow("s-1", state, receipt, now, now))

	rec, err := (SessionRepository{DB: db}).Load(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if rec.State.Trip.Pickup == nil || rec.State.Trip.Pickup.Address != "Heathrow Airport" {
		t.Fatalf("pickup not restored: %+v", rec.State.Trip.Pickup)
	}
	if rec.State.FareQuote == nil || rec.State.FareQuote.Version != 6 {
		t.Fatalf("quote not restored: %+v", rec.State.FareQuote)
	}
	if rec.Receipt == nil || rec.Receipt.BookingID != "TB-1" {
		t.Fatalf("receipt not restored: %+v", rec.Receipt)
	}
	if !rec.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at got %v want %v", rec.UpdatedAt, now)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_LoadMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, state_json, receipt_json").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "state_json", "receipt_json", "created_at", "updated_at"}))

	_, err = (SessionRepository{DB: db}).Load(context.Background(), "nope")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionRepository_DeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM booking_sessions").WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = (SessionRepository{DB: db}).Delete(context.Background(), "gone")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
