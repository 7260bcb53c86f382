package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	execs      []Mutation
	execErr    error
	commitErr  error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.execs = append(f.execs, Mutation{SQL: query, Args: args})
	return nil, nil
}

func (f *fakeTx) Commit() error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback() error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs []*fakeTx
	// next overrides the tx handed out, when set
	next *fakeTx
}

func (f *fakeBeginner) begin(context.Context) (Tx, error) {
	tx := f.next
	if tx == nil {
		tx = &fakeTx{}
	}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestDriver_FlushBoundaries(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly max mutations is one batch", func(t *testing.T) {
		beginner := &fakeBeginner{}
		d := NewDriverWithBeginner(beginner.begin, nopLogger(), 450)

		for i := 0; i < 450; i++ {
			require.NoError(t, d.Add(ctx, Mutation{SQL: fmt.Sprintf("m%d", i)}))
		}
		assert.Equal(t, 0, d.Batches())
		require.NoError(t, d.Flush(ctx))

		assert.Equal(t, 1, d.Batches())
		assert.Equal(t, 450, d.Applied())
		assert.Len(t, beginner.txs, 1)
		assert.Len(t, beginner.txs[0].execs, 450)
		assert.True(t, beginner.txs[0].committed)
	})

	t.Run("one past max rolls into a second batch", func(t *testing.T) {
		beginner := &fakeBeginner{}
		d := NewDriverWithBeginner(beginner.begin, nopLogger(), 450)

		for i := 0; i < 451; i++ {
			require.NoError(t, d.Add(ctx, Mutation{SQL: fmt.Sprintf("m%d", i)}))
		}
		// batch 1 flushed on the 451st add
		assert.Equal(t, 1, d.Batches())
		assert.Equal(t, 1, d.Pending())

		require.NoError(t, d.Flush(ctx))
		assert.Equal(t, 2, d.Batches())
		assert.Equal(t, 451, d.Applied())
		assert.Len(t, beginner.txs, 2)
		assert.Len(t, beginner.txs[1].execs, 1)
	})

	t.Run("flush with nothing pending is a no-op", func(t *testing.T) {
		beginner := &fakeBeginner{}
		d := NewDriverWithBeginner(beginner.begin, nopLogger(), 10)

		require.NoError(t, d.Flush(ctx))
		assert.Empty(t, beginner.txs)
		assert.Equal(t, 0, d.Batches())
	})

	t.Run("zero max falls back to the default", func(t *testing.T) {
		d := NewDriverWithBeginner((&fakeBeginner{}).begin, nopLogger(), 0)
		assert.Equal(t, DefaultMaxMutations, d.max)
	})
}

func TestDriver_FailedBatchLeavesEarlierBatchesApplied(t *testing.T) {
	ctx := context.Background()
	beginner := &fakeBeginner{}
	d := NewDriverWithBeginner(beginner.begin, nopLogger(), 2)

	require.NoError(t, d.Add(ctx, Mutation{SQL: "a"}))
	require.NoError(t, d.Add(ctx, Mutation{SQL: "b"}))

	// adding a third mutation flushes the full first batch
	require.NoError(t, d.Add(ctx, Mutation{SQL: "c"}))
	assert.Equal(t, 2, d.Applied())
	assert.Equal(t, 1, d.Batches())

	failing := &fakeTx{execErr: errors.New("deadlock")}
	beginner.next = failing

	err := d.Flush(ctx)
	require.Error(t, err)
	assert.True(t, failing.rolledBack)
	assert.False(t, failing.committed)
	// the failed batch is still pending, earlier commits stand
	assert.Equal(t, 2, d.Applied())
	assert.Equal(t, 1, d.Pending())
}

func TestThrottle(t *testing.T) {
	t.Run("sleeps after each full burst", func(t *testing.T) {
		th := NewThrottle(3, time.Second)
		var slept int
		th.sleep = func(context.Context, time.Duration) error {
			slept++
			return nil
		}

		ctx := context.Background()
		for i := 0; i < 7; i++ {
			require.NoError(t, th.Tick(ctx))
		}
		assert.Equal(t, 2, slept)
	})

	t.Run("disabled when burst is zero", func(t *testing.T) {
		th := NewThrottle(0, time.Second)
		th.sleep = func(context.Context, time.Duration) error {
			t.Fatal("should not sleep")
			return nil
		}
		require.NoError(t, th.Tick(context.Background()))
	})

	t.Run("cancelled context aborts the sleep", func(t *testing.T) {
		th := NewThrottle(1, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, th.Tick(ctx), context.Canceled)
	})
}
