// Package batch chunks document mutations into transactionally bounded
// batches. Every mutating job in fern routes its writes through a Driver so
// no single commit exceeds the store's mutation limit.
package batch

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DefaultMaxMutations mirrors the underlying store's atomic batch limit.
const DefaultMaxMutations = 450

// Mutation is one pending document write.
type Mutation struct {
	SQL  string
	Args []any
}

// Tx is the transaction surface the driver commits batches through.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// Beginner opens a new transaction for one batch.
type Beginner func(ctx context.Context) (Tx, error)

// Driver accumulates mutations and flushes them in bounded, sequential
// batches. A failed batch leaves earlier batches committed; callers are
// expected to be idempotent and re-run to converge.
type Driver struct {
	begin   Beginner
	logger  ectologger.Logger
	max     int
	pending []Mutation
	applied int
	batches int
}

// NewDriver creates a driver committing through the given database handle.
func NewDriver(db database.DB, logger ectologger.Logger, maxMutations int) *Driver {
	begin := func(ctx context.Context) (Tx, error) {
		return db.BeginTxx(ctx, nil)
	}
	return NewDriverWithBeginner(begin, logger, maxMutations)
}

// NewDriverWithBeginner creates a driver with a custom transaction source.
func NewDriverWithBeginner(begin Beginner, logger ectologger.Logger, maxMutations int) *Driver {
	if maxMutations <= 0 {
		maxMutations = DefaultMaxMutations
	}
	return &Driver{
		begin:  begin,
		logger: logger,
		max:    maxMutations,
	}
}

// Add queues a mutation, flushing first if the batch is full.
func (d *Driver) Add(ctx context.Context, m Mutation) error {
	if len(d.pending) >= d.max {
		if err := d.Flush(ctx); err != nil {
			return err
		}
	}
	d.pending = append(d.pending, m)
	return nil
}

// Flush commits all pending mutations in a single transaction. It is a
// no-op when nothing is pending; callers must Flush once at the end of a
// run to commit the final partial batch.
func (d *Driver) Flush(ctx context.Context) error {
	if len(d.pending) == 0 {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "batch.Driver.Flush")
	defer span.End()

	tx, err := d.begin(ctx)
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("Failed to begin batch transaction")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin batch transaction")
	}

	for _, m := range d.pending {
		if _, err := tx.ExecContext(ctx, m.SQL, m.Args...); err != nil {
			_ = tx.Rollback()
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"batch_size": len(d.pending)}).Error("Batch mutation failed")
			return httperror.NewHTTPError(http.StatusInternalServerError, "batch commit failed")
		}
	}

	if err := tx.Commit(); err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("Failed to commit batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit batch")
	}

	d.applied += len(d.pending)
	d.batches++
	d.logger.WithContext(ctx).WithFields(map[string]any{"mutations": len(d.pending), "batch": d.batches}).Debug("Committed batch")
	d.pending = d.pending[:0]
	return nil
}

// Applied returns the number of mutations committed so far.
func (d *Driver) Applied() int {
	return d.applied
}

// Batches returns the number of batches committed so far.
func (d *Driver) Batches() int {
	return d.batches
}

// Pending returns the number of uncommitted mutations.
func (d *Driver) Pending() int {
	return len(d.pending)
}
