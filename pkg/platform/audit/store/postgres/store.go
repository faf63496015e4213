package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit"
	txcontext "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store. Run Migrate first.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectColumns = `
	SELECT category, timestamp, action, actor, subject,
		   property_id, transaction_id, decision, prior_state, reference,
		   amount, request_id
	FROM audit_events
`

// Append inserts an audit event. The category is always derived from the
// action so the category map stays the source of truth.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, actor, subject,
			property_id, transaction_id, decision, prior_state, reference,
			amount, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		string(audit.AuditEvent(event.Action).Category()),
		event.Timestamp,
		event.Action,
		event.Actor,
		event.Subject,
		int64(event.PropertyID),
		int64(event.TransactionID),
		event.Decision,
		event.PriorState,
		event.Reference,
		fmt.Sprintf("%d", event.Amount),
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns events naming subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE subject = $1 ORDER BY timestamp ASC`, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByProperty returns events for one property, oldest first.
func (s *Store) ListByProperty(ctx context.Context, propertyID uint64) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE property_id = $1 ORDER BY timestamp ASC`, int64(propertyID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e             audit.Event
			category      string
			propertyID    int64
			transactionID int64
			amount        string
		)
		if err := rows.Scan(
			&category, &e.Timestamp, &e.Action, &e.Actor, &e.Subject,
			&propertyID, &transactionID, &e.Decision, &e.PriorState, &e.Reference,
			&amount, &e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.PropertyID = uint64(propertyID)
		e.TransactionID = uint64(transactionID)
		if _, err := fmt.Sscan(amount, &e.Amount); err != nil {
			return nil, fmt.Errorf("parse audit amount %q: %w", amount, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
