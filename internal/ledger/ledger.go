// Package ledger implements the durable per-month processing state machine
// that makes the backfill pipeline resumable.
package ledger

import (
	"context"
	"fmt"
	"time"
)

// State of a (year, month) backfill unit. StateNone is the implicit pending
// state: no ledger row exists.
type State string

const (
	StateNone       State = ""
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Event drives state transitions.
type Event string

const (
	// EventBegin starts processing a month.
	EventBegin Event = "begin"
	// EventComplete marks a month fully loaded.
	EventComplete Event = "complete"
	// EventFail marks a month's processing as failed.
	EventFail Event = "fail"
	// EventRetry clears a stale in_progress or failed entry so the month
	// can be reprocessed. This is the crash-recovery transition: a month
	// that never reached completed is retried in full.
	EventRetry Event = "retry"
)

// Transition returns the state that follows applying event to current.
// Invalid transitions (e.g. completing a month that was never begun, or
// retrying a completed month) return an error.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventBegin:
		if current == StateNone {
			return StateInProgress, nil
		}
	case EventComplete:
		if current == StateInProgress {
			return StateCompleted, nil
		}
	case EventFail:
		if current == StateInProgress {
			return StateFailed, nil
		}
	case EventRetry:
		if current == StateInProgress || current == StateFailed {
			return StateNone, nil
		}
	}
	return current, fmt.Errorf("ledger: invalid transition %q from state %q", event, current)
}

// Entry is one ledger row.
type Entry struct {
	Year         int
	Month        int
	State        State
	SourceFile   string
	BackfillSpec string
	RowsLoaded   int64
	CompletedAt  time.Time
}

// Store persists ledger entries. The warehouse guarantees at most one entry
// per (year, month).
type Store interface {
	// GetMonth returns the current entry for the month, or an entry with
	// StateNone when no row exists.
	GetMonth(ctx context.Context, year, month int) (Entry, error)
	// DeleteMonth removes any entry for the month.
	DeleteMonth(ctx context.Context, year, month int) error
	// InsertInProgress writes a fresh in_progress entry.
	InsertInProgress(ctx context.Context, e Entry) error
	// MarkCompleted transitions the month's entry to completed and stamps
	// the row count and completion time.
	MarkCompleted(ctx context.Context, year, month int, rowsLoaded int64) error
	// MarkFailed transitions the month's entry to failed.
	MarkFailed(ctx context.Context, year, month int) error
}

// Ledger exposes the month-level operations the pipeline uses.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// IsMonthDone reports whether a completed entry exists for the month. A
// stale in_progress or failed entry is cleared (EventRetry) so the caller
// can reprocess the month from the beginning.
func (l *Ledger) IsMonthDone(ctx context.Context, year, month int) (bool, error) {
	e, err := l.store.GetMonth(ctx, year, month)
	if err != nil {
		return false, fmt.Errorf("IsMonthDone: %w", err)
	}
	switch e.State {
	case StateCompleted:
		return true, nil
	case StateNone:
		return false, nil
	}
	if _, err := Transition(e.State, EventRetry); err != nil {
		return false, fmt.Errorf("IsMonthDone: %w", err)
	}
	if err := l.store.DeleteMonth(ctx, year, month); err != nil {
		return false, fmt.Errorf("IsMonthDone: clearing stale %s entry: %w", e.State, err)
	}
	return false, nil
}

// Begin records an in_progress entry for the month. Any previous entry has
// already been cleared by IsMonthDone.
func (l *Ledger) Begin(ctx context.Context, year, month int, sourceFile, spec string) error {
	e, err := l.store.GetMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("Begin: %w", err)
	}
	next, err := Transition(e.State, EventBegin)
	if err != nil {
		return fmt.Errorf("Begin: %w", err)
	}
	entry := Entry{
		Year:         year,
		Month:        month,
		State:        next,
		SourceFile:   sourceFile,
		BackfillSpec: spec,
	}
	if err := l.store.InsertInProgress(ctx, entry); err != nil {
		return fmt.Errorf("Begin: %w", err)
	}
	return nil
}

// Complete transitions the month to completed and records rows loaded.
func (l *Ledger) Complete(ctx context.Context, year, month int, rowsLoaded int64) error {
	e, err := l.store.GetMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	if _, err := Transition(e.State, EventComplete); err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	if err := l.store.MarkCompleted(ctx, year, month, rowsLoaded); err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	return nil
}

// Fail transitions the month to failed, leaving it eligible for retry on
// the next run.
func (l *Ledger) Fail(ctx context.Context, year, month int) error {
	e, err := l.store.GetMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("Fail: %w", err)
	}
	if _, err := Transition(e.State, EventFail); err != nil {
		return fmt.Errorf("Fail: %w", err)
	}
	if err := l.store.MarkFailed(ctx, year, month); err != nil {
		return fmt.Errorf("Fail: %w", err)
	}
	return nil
}
