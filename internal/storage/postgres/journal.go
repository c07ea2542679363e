package postgres

import (
	"context"
	"fmt"
	"libraloan/internal/circulation"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Journal appends loan events to the loan_events table.
type Journal struct {
	db     *DB
	tracer trace.Tracer
}

// NewJournal constructs a journal over db.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db, tracer: otel.Tracer("libraloan/journal")}
}

// Append stores e with a JSON payload and returns once the row is written.
func (j *Journal) Append(ctx context.Context, e circulation.Event) error {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("loan.id", e.LoanID.String()),
			attribute.String("event.type", e.Type),
		),
	)
	defer span.End()

	payload, err := jsoniter.ConfigFastest.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	const q = `
INSERT INTO loan_events (loan_id, event_type, payload, occurred_at)
VALUES ($1, $2, $3, $4)
RETURNING id`
	var id int64
	if err := j.db.Pool.QueryRow(ctx, q, e.LoanID, e.Type, payload, e.OccurredAt).Scan(&id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert event: %w", err)
	}
	span.SetAttributes(attribute.Int64("event.id", id))
	return nil
}

// Load returns the events recorded for one loan, oldest first.
func (j *Journal) Load(ctx context.Context, loanID uuid.UUID) ([]circulation.Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	const q = `SELECT payload FROM loan_events WHERE loan_id=$1 ORDER BY id ASC`
	rows, err := j.db.Pool.Query(ctx, q, loanID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []circulation.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e circulation.Event
		if err := jsoniter.ConfigFastest.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
