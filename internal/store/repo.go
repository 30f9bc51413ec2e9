package store

import (
	"context"
	"errors"
	"time"
)

// Outcome of a compile run.
const (
	OutcomeOK             = "ok"
	OutcomeSelfTestFailed = "selftest_failed"
	OutcomeFailed         = "failed"
)

// ErrNotFound is returned when a run reference matches nothing.
var ErrNotFound = errors.New("run not found")

// QueryOpts configures run queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Outcome string    // exact outcome, "" = any
	From    time.Time // timestamp >= From
}

// Run is one compile of a problem file.
type Run struct {
	ID        string
	Sequence  int64
	Timestamp time.Time

	SpecPath string
	Name     string
	Outcome  string
	Error    string

	Labels      int
	Boxes       int
	Tests       int
	TestsPassed int

	Samples      string
	BoxedFormula string

	OutputDir   string
	OutputBytes int64
	Duration    time.Duration
}

// RunRepo records and lists compile runs.
type RunRepo interface {
	// Append stores r, assigning ID, Sequence and Timestamp when unset.
	Append(ctx context.Context, r *Run) error

	// List returns runs newest first.
	List(ctx context.Context, opts QueryOpts) ([]Run, error)

	// Get finds a run by sequence number or by ID prefix.
	Get(ctx context.Context, ref string) (*Run, error)

	// Prune deletes all but the keep most recent runs.
	Prune(ctx context.Context, keep int) (int64, error)
}
