package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/pkg/types"
)

// ErrInvalidEvent is returned when an escape event lacks an id or a chosen type.
var ErrInvalidEvent = errors.New("sqlite: invalid escape event")

// EscapeJournal persists escape-hatch events. It implements
// inquiry.EscapeRecorder.
type EscapeJournal struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ inquiry.EscapeRecorder = (*EscapeJournal)(nil)

// OpenEscapeJournal opens or creates the journal at dsn.
func OpenEscapeJournal(dsn string, logger zerolog.Logger) (*EscapeJournal, error) {
	db, err := open(dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open escape journal: %w", err)
	}
	return &EscapeJournal{db: db, logger: logger}, nil
}

// Close closes the database.
func (j *EscapeJournal) Close() error {
	return j.db.Close()
}

// RecordEscape stores e. Recording the same id twice keeps the first copy.
func (j *EscapeJournal) RecordEscape(ctx context.Context, e inquiry.EscapeEvent) error {
	if e.ID == "" || !e.Chosen.IsValid() {
		return ErrInvalidEvent
	}
	snapshot, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("sqlite: encode snapshot: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO escape_events (id, at_ns, learner_id, topic, chosen, reason, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.At.UnixNano(), e.LearnerID, e.Topic, string(e.Chosen), e.Reason, string(snapshot))
	if err != nil {
		return fmt.Errorf("sqlite: record escape %s: %w", e.ID, err)
	}
	return nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	LearnerID string
	Since     time.Time
	Limit     int
}

// List returns matching events, oldest first.
func (j *EscapeJournal) List(ctx context.Context, f ListFilter) ([]inquiry.EscapeEvent, error) {
	var (
		where []string
		args  []any
	)
	if f.LearnerID != "" {
		where = append(where, "learner_id = ?")
		args = append(args, f.LearnerID)
	}
	if !f.Since.IsZero() {
		where = append(where, "at_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}

	query := "SELECT id, at_ns, learner_id, topic, chosen, reason, snapshot FROM escape_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at_ns, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list escapes: %w", err)
	}
	defer rows.Close()

	var out []inquiry.EscapeEvent
	for rows.Next() {
		var (
			e        inquiry.EscapeEvent
			atNS     int64
			chosen   string
			snapshot string
		)
		if err := rows.Scan(&e.ID, &atNS, &e.LearnerID, &e.Topic, &chosen, &e.Reason, &snapshot); err != nil {
			return nil, fmt.Errorf("sqlite: scan escape: %w", err)
		}
		e.At = time.Unix(0, atNS).UTC()
		e.Chosen = types.QuestionType(chosen)
		if err := json.Unmarshal([]byte(snapshot), &e.Snapshot); err != nil {
			j.logger.Warn().Err(err).Str("escape_id", e.ID).Msg("sqlite: undecodable escape snapshot")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list escapes: %w", err)
	}
	return out, nil
}

// Count returns the number of stored events.
func (j *EscapeJournal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM escape_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count escapes: %w", err)
	}
	return n, nil
}
