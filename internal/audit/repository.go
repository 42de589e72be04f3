// Package audit records the bridge's Home Assistant calls and subscriber
// connection changes in SQLite for later inspection.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page size bounds for list queries.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeLayout is fixed-width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Actuation is one recorded Home Assistant call.
type Actuation struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	EntityID   string    `json:"entity_id"`
	On         bool      `json:"on"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// ConnectionEvent is one recorded subscriber state transition.
type ConnectionEvent struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Endpoint   string    `json:"endpoint"`
	State      string    `json:"state"`
	Reason     string    `json:"reason,omitempty"`
}

// Filter controls which actuations List returns.
type Filter struct {
	Target string // optional: "light" or "climate"
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is a page of actuations, newest first.
type ListResult struct {
	Actuations []Actuation `json:"actuations"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

// Repository stores and queries audit records.
type Repository interface {
	RecordActuation(ctx context.Context, a *Actuation) error
	ListActuations(ctx context.Context, filter Filter) (*ListResult, error)
	RecordConnection(ctx context.Context, ev *ConnectionEvent) error
	RecentConnections(ctx context.Context, limit int) ([]ConnectionEvent, error)
}

// SQLiteRepository implements Repository on the migrated schema.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordActuation inserts a. ID and OccurredAt are filled in when empty.
func (r *SQLiteRepository) RecordActuation(ctx context.Context, a *Actuation) error {
	if a.Target == "" || a.EntityID == "" {
		return fmt.Errorf("%w: target and entity_id are required", ErrInvalidEntry)
	}
	if a.ID == "" {
		a.ID = "act-" + uuid.NewString()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}
	a.OccurredAt = a.OccurredAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actuations (id, occurred_at, source, target, entity_id, turn_on, success, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OccurredAt.Format(timeLayout), a.Source, a.Target, a.EntityID,
		boolInt(a.On), boolInt(a.Success), nullableString(a.Error), a.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting actuation: %w", err)
	}
	return nil
}

// ListActuations returns actuations matching filter, newest first.
func (r *SQLiteRepository) ListActuations(ctx context.Context, filter Filter) (*ListResult, error) {
	filter, err := normaliseFilter(filter)
	if err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	if filter.Target != "" {
		conditions = append(conditions, "target = ?")
		args = append(args, filter.Target)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM actuations " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting actuations: %w", err)
	}

	query := "SELECT id, occurred_at, source, target, entity_id, turn_on, success, error, duration_ms FROM actuations " + //nolint:gosec // WHERE built from parameterised conditions
		where + " ORDER BY occurred_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying actuations: %w", err)
	}
	defer rows.Close()

	result := &ListResult{Actuations: []Actuation{}, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	for rows.Next() {
		var a Actuation
		var occurredAt string
		var on, success int
		var errText sql.NullString
		if err := rows.Scan(&a.ID, &occurredAt, &a.Source, &a.Target, &a.EntityID,
			&on, &success, &errText, &a.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning actuation: %w", err)
		}
		a.On = on != 0
		a.Success = success != 0
		a.Error = errText.String
		if a.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("parsing actuation timestamp %q: %w", occurredAt, err)
		}
		result.Actuations = append(result.Actuations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuations: %w", err)
	}
	return result, nil
}

// RecordConnection inserts ev. ID and OccurredAt are filled in when empty.
func (r *SQLiteRepository) RecordConnection(ctx context.Context, ev *ConnectionEvent) error {
	if ev.Endpoint == "" || ev.State == "" {
		return fmt.Errorf("%w: endpoint and state are required", ErrInvalidEntry)
	}
	if ev.ID == "" {
		ev.ID = "con-" + uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO connection_events (id, occurred_at, endpoint, state, reason) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.OccurredAt.Format(timeLayout), ev.Endpoint, ev.State, ev.Reason,
	)
	if err != nil {
		return fmt.Errorf("inserting connection event: %w", err)
	}
	return nil
}

// RecentConnections returns up to limit connection events, newest first.
func (r *SQLiteRepository) RecentConnections(ctx context.Context, limit int) ([]ConnectionEvent, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, occurred_at, endpoint, state, reason FROM connection_events
		 ORDER BY occurred_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying connection events: %w", err)
	}
	defer rows.Close()

	events := []ConnectionEvent{}
	for rows.Next() {
		var ev ConnectionEvent
		var occurredAt string
		if err := rows.Scan(&ev.ID, &occurredAt, &ev.Endpoint, &ev.State, &ev.Reason); err != nil {
			return nil, fmt.Errorf("scanning connection event: %w", err)
		}
		if ev.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("parsing connection timestamp %q: %w", occurredAt, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connection events: %w", err)
	}
	return events, nil
}

func normaliseFilter(f Filter) (Filter, error) {
	switch f.Target {
	case "", "light", "climate":
	default:
		return f, fmt.Errorf("%w: unknown target %q", ErrInvalidFilter, f.Target)
	}
	f.Limit = clampLimit(f.Limit)
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString maps "" to NULL for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
