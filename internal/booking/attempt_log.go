package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/careslot/internal/calcom"
)

// AttemptRecord is one booking submission as written to the attempt log.
type AttemptRecord struct {
	ID            uuid.UUID
	EventTypeID   int
	StartAt       string
	AttendeeEmail string
	AttendeePhone string
	Succeeded     bool
	BookingUID    string
	Error         string
	Attempts      int
	RecordedAt    time.Time
}

// AttemptRecorder persists submission outcomes.
type AttemptRecorder interface {
	Record(ctx context.Context, rec AttemptRecord) error
}

func newAttemptRecord(payload calcom.CreateBookingRequest, outcome Outcome, attempts int) AttemptRecord {
	rec := AttemptRecord{
		ID:            uuid.New(),
		EventTypeID:   payload.EventTypeID,
		StartAt:       payload.Start,
		AttendeeEmail: payload.Attendee.Email,
		AttendeePhone: payload.Attendee.PhoneNumber,
		Succeeded:     outcome.Status,
		Error:         outcome.Error,
		Attempts:      attempts,
		RecordedAt:    time.Now().UTC(),
	}
	if outcome.Status {
		var data struct {
			UID string `json:"uid"`
		}
		if err := json.Unmarshal(outcome.Booking, &data); err == nil {
			rec.BookingUID = data.UID
		}
	}
	return rec
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresAttemptLog appends submission outcomes to booking_attempts.
type PostgresAttemptLog struct {
	db execer
}

// NewPostgresAttemptLog accepts a *pgxpool.Pool or any pgx-compatible execer.
func NewPostgresAttemptLog(db execer) *PostgresAttemptLog {
	if db == nil {
		panic("booking: attempt log db required")
	}
	return &PostgresAttemptLog{db: db}
}

// Record inserts rec.
func (l *PostgresAttemptLog) Record(ctx context.Context, rec AttemptRecord) error {
	query := `
		INSERT INTO booking_attempts (id, event_type_id, start_at, attendee_email, attendee_phone, succeeded, booking_uid, error, attempts, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
	`
	_, err := l.db.Exec(ctx, query,
		rec.ID, rec.EventTypeID, rec.StartAt, rec.AttendeeEmail, rec.AttendeePhone,
		rec.Succeeded, rec.BookingUID, rec.Error, rec.Attempts, rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: record attempt: %w", err)
	}
	return nil
}
