package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/sqlinline"
)

// ErrDisabled is returned by read operations when the service runs without
// a database.
var ErrDisabled = errors.New("history: disabled")

// Operation kinds and outcome statuses recorded per generation.
const (
	KindSimple    = "simple"
	KindKandinsky = "kandinsky"
	KindModel3D   = "model3d"

	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one recorded generation attempt, success or failure.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Provider   string    `json:"provider"`
	Prompt     string    `json:"prompt"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	FileURLs   []string  `json:"file_urls"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder appends generation attempts to the generation_log table. History
// is advisory; a nil executor yields a recorder that accepts writes as
// no-ops and reports ErrDisabled on reads.
type Recorder struct {
	exec infra.SQLExecutor
}

// NewRecorder wraps the executor. Pass nil to disable history.
func NewRecorder(exec infra.SQLExecutor) *Recorder {
	return &Recorder{exec: exec}
}

// Enabled reports whether a database backs this recorder.
func (r *Recorder) Enabled() bool {
	return r != nil && r.exec != nil
}

// Init creates the log table and its index when missing.
func (r *Recorder) Init(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	if _, err := r.exec.Exec(ctx, sqlinline.QEnsureGenerationLog); err != nil {
		return err
	}
	_, err := r.exec.Exec(ctx, sqlinline.QEnsureGenerationLogIndex)
	return err
}

// Record appends one entry. Callers treat failures as non-fatal.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if !r.Enabled() {
		return nil
	}
	urls := e.FileURLs
	if urls == nil {
		urls = []string{}
	}
	_, err := r.exec.Exec(ctx, sqlinline.QInsertGenerationLog,
		e.Kind, e.Provider, e.Prompt, e.Status, e.Detail, urls, e.DurationMS)
	return err
}

// Recent returns the newest entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if !r.Enabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.exec.Query(ctx, sqlinline.QRecentGenerations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Provider, &e.Prompt, &e.Status, &e.Detail, &e.FileURLs, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
