package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultProcessor(t *testing.T) *Processor[int] {
	t.Helper()
	p, err := NewProcessor[int](DefaultBatchSize)
	require.NoError(t, err)
	return p
}

func TestProcessor_Process(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	t.Run("Sequential", func(t *testing.T) {
		p := newDefaultProcessor(t)
		var seen []int
		var batches int

		err := p.Process(context.Background(), items, func(_ context.Context, batch []int, _ int) error {
			batches++
			seen = append(seen, batch...)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, items, seen, "items are visited once, in order")
		assert.Equal(t, 5, batches)
	})

	t.Run("ProgressCallback", func(t *testing.T) {
		var snaps []ProgressSnapshot
		p := newDefaultProcessor(t).WithProgressCallback(func(s ProgressSnapshot) {
			snaps = append(snaps, s)
		})

		err := p.Process(context.Background(), items, func(context.Context, []int, int) error { return nil })
		require.NoError(t, err)
		require.Len(t, snaps, 5)
		assert.Equal(t, 5, snaps[0].ProcessedItems)
		assert.Equal(t, 1, snaps[0].ProcessedBatches)
		assert.Equal(t, 23, snaps[4].ProcessedItems)
		assert.InDelta(t, 100.0, snaps[4].PercentComplete, 1e-9)
	})

	t.Run("ErrorHandling", func(t *testing.T) {
		p, _ := NewProcessor[int](10)
		calls := 0
		err := p.Process(context.Background(), items, func(_ context.Context, _ []int, batchIndex int) error {
			calls++
			if batchIndex == 1 {
				return errors.New("fail")
			}
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch 1 failed")
		assert.Equal(t, 2, calls)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := newDefaultProcessor(t)
		calls := 0
		err := p.Process(ctx, items, func(context.Context, []int, int) error {
			calls++
			cancel()
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("EmptyItems", func(t *testing.T) {
		p := newDefaultProcessor(t)
		err := p.Process(context.Background(), nil, nil)
		assert.Equal(t, ErrEmptyItems, err)
	})

	t.Run("NilCallback", func(t *testing.T) {
		p := newDefaultProcessor(t)
		err := p.Process(context.Background(), items, nil)
		assert.Equal(t, ErrNilCallback, err)
	})

	t.Run("InvalidBatchSize", func(t *testing.T) {
		_, err := NewProcessor[int](0)
		require.ErrorIs(t, err, ErrInvalidBatchSize)
		_, err = NewProcessor[int](2000)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	})
}

func TestProgress(t *testing.T) {
	p := NewProgress(100, 10, 10)

	assert.InDelta(t, 0.0, p.Snapshot().PercentComplete, 1e-9)

	p.AddProcessed(10)
	assert.InDelta(t, 10.0, p.Snapshot().PercentComplete, 1e-9)
	assert.Equal(t, 1, p.Snapshot().ProcessedBatches)

	p.AddProcessed(90)
	snap := p.Snapshot()
	assert.InDelta(t, 100.0, snap.PercentComplete, 1e-9)
	assert.Equal(t, 100, snap.ProcessedItems)
	assert.Equal(t, 10, snap.TotalBatches)

	assert.InDelta(t, 0.0, NewProgress(0, 0, 5).Snapshot().PercentComplete, 1e-9)
}

func TestProcessor_CalculateBatches(t *testing.T) {
	p, _ := NewProcessor[int](10)
	batches := p.CalculateBatches(25)
	require.Len(t, batches, 3)
	assert.Equal(t, [2]int{0, 10}, batches[0])
	assert.Equal(t, [2]int{10, 20}, batches[1])
	assert.Equal(t, [2]int{20, 25}, batches[2])
	assert.Empty(t, p.CalculateBatches(0))
}
