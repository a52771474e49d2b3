package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachRespectsLimit(t *testing.T) {
	var inFlight, peak, calls atomic.Int32
	items := make([]int, 32)

	err := ForEach(context.Background(), items, 4, func(_ context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		calls.Add(1)
		inFlight.Add(-1)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(32), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestForEachReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMapPreservesOrder(t *testing.T) {
	out, err := Map(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, v int) (int, error) {
		return v * v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16}, out)

	_, err = Map(context.Background(), []int{1}, 0, func(context.Context, int) (int, error) {
		return 0, errors.New("nope")
	})
	assert.Error(t, err)
}
