package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var runColumns = []string{
	"id", "sequence", "timestamp", "spec_path", "name", "outcome", "error",
	"labels", "boxes", "tests", "tests_passed", "samples", "boxed_formula",
	"output_dir", "output_bytes", "duration_ms",
}

// insertColumns leaves out sequence, which SQLite assigns.
var insertColumns = append(runColumns[:1:1], runColumns[2:]...)

type runRepo struct {
	db *sql.DB
}

func builder() *entsql.DialectBuilder { return entsql.Dialect(dialect.SQLite) }

func (r *runRepo) Append(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	b := builder()
	q, args := b.Insert(runsTable).
		Columns(insertColumns...).
		Values(
			run.ID, run.Timestamp.UnixMilli(), run.SpecPath, run.Name,
			run.Outcome, run.Error, run.Labels, run.Boxes, run.Tests, run.TestsPassed,
			run.Samples, run.BoxedFormula, run.OutputDir, run.OutputBytes,
			run.Duration.Milliseconds(),
		).
		Query()
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if run.Sequence, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (r *runRepo) List(ctx context.Context, opts QueryOpts) ([]Run, error) {
	b := builder()
	sel := b.Select(runColumns...).From(b.Table(runsTable))
	var preds []*entsql.Predicate
	if opts.Outcome != "" {
		preds = append(preds, entsql.EQ("outcome", opts.Outcome))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UnixMilli()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return r.query(ctx, sel)
}

func (r *runRepo) Get(ctx context.Context, ref string) (*Run, error) {
	b := builder()
	sel := b.Select(runColumns...).From(b.Table(runsTable))
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		sel.Where(entsql.EQ("sequence", n))
	} else {
		sel.Where(entsql.HasPrefix("id", ref))
	}
	sel.Limit(2)

	runs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("run reference %q is ambiguous", ref)
	}
}

func (r *runRepo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	// Find the sequence of the keep-th most recent run.
	var cutoff int64
	err := r.db.QueryRowContext(ctx,
		`SELECT sequence FROM compile_runs ORDER BY sequence DESC LIMIT 1 OFFSET ?`, keep,
	).Scan(&cutoff)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find prune cutoff: %w", err)
	}

	q, args := builder().Delete(runsTable).Where(entsql.LTE("sequence", cutoff)).Query()
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func (r *runRepo) query(ctx context.Context, sel *entsql.Selector) ([]Run, error) {
	q, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var ts, durMs int64
		if err := rows.Scan(
			&run.ID, &run.Sequence, &ts, &run.SpecPath, &run.Name, &run.Outcome, &run.Error,
			&run.Labels, &run.Boxes, &run.Tests, &run.TestsPassed, &run.Samples, &run.BoxedFormula,
			&run.OutputDir, &run.OutputBytes, &durMs,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Timestamp = time.UnixMilli(ts).UTC()
		run.Duration = time.Duration(durMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
