package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "transferbook/internal/config"
	intdb "transferbook/internal/db"
	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
)

const sessionTable = "booking_sessions"

// SessionRecord is one persisted wizard session. Only the trip and the last
// quote are stored; request flags, validation and navigation are not.
type SessionRecord struct {
	ID        string
	State     models.PersistedState
	Receipt   *models.BookingReceipt
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SessionRepository struct {
	DB *sql.DB
}

func (r SessionRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// EnsureTable creates booking_sessions when it is missing.
func (r SessionRepository) EnsureTable(ctx context.Context) error {
	db := r.db()
	if db == nil {
		return domain.InternalError{Msg: "db not available"}
	}
	if intdb.HasTable(db, sessionTable) {
		return r.migrate(ctx, db)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS booking_sessions (
	id CHAR(36) NOT NULL PRIMARY KEY,
	state_json LONGTEXT NOT NULL,
	receipt_json LONGTEXT NULL,
	trip_version BIGINT UNSIGNED NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_updated (updated_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", sessionTable, err)
	}
	return nil
}

// migrate adds columns introduced after the first schema.
func (r SessionRepository) migrate(ctx context.Context, db *sql.DB) error {
	if intdb.HasColumn(db, sessionTable, "receipt_json") {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE booking_sessions ADD COLUMN receipt_json LONGTEXT NULL AFTER state_json`); err != nil {
		return fmt.Errorf("add receipt_json: %w", err)
	}
	return nil
}

// Save upserts the session row.
func (r SessionRepository) Save(ctx context.Context, rec SessionRecord) error {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return domain.ValidationError{Field: "id", Msg: "session id is required"}
	}
	state, err := json.Marshal(rec.State)
	if err != nil {
		return domain.InternalError{Msg: "encode session state", Err: err}
	}
	var receipt any
	if rec.Receipt != nil {
		b, err := json.Marshal(rec.Receipt)
		if err != nil {
			return domain.InternalError{Msg: "encode receipt", Err: err}
		}
		receipt = string(b)
	}

	_, err = r.db().ExecContext(ctx, `
		INSERT INTO booking_sessions (id, state_json, receipt_json, trip_version)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			state_json = VALUES(state_json),
			receipt_json = COALESCE(VALUES(receipt_json), receipt_json),
			trip_version = VALUES(trip_version)
	`, id, string(state), receipt, rec.State.Trip.Version)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (r SessionRepository) Load(ctx context.Context, id string) (SessionRecord, error) {
	var (
		rec     SessionRecord
		state   string
		receipt sql.NullString
		created sql.NullTime
		updated sql.NullTime
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, state_json, receipt_json, created_at, updated_at
		FROM booking_sessions
		WHERE id = ?
		LIMIT 1
	`, strings.TrimSpace(id)).Scan(&rec.ID, &state, &receipt, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, domain.NotFoundError{Resource: "session", Err: err}
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("load session %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(state), &rec.State); err != nil {
		return SessionRecord{}, domain.InternalError{Msg: "decode session state", Err: err}
	}
	if receipt.Valid && receipt.String != "" {
		var rc models.BookingReceipt
		if err := json.Unmarshal([]byte(receipt.String), &rc); err != nil {
			return SessionRecord{}, domain.InternalError{Msg: "decode receipt", Err: err}
		}
		rec.Receipt = &rc
	}
	rec.CreatedAt = created.Time
	rec.UpdatedAt = updated.Time
	return rec, nil
}

func (r SessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM booking_sessions WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "session"}
	}
	return nil
}
