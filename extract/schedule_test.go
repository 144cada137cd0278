package extract_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptors(n int) []harvest.Descriptor {
	descs := make([]harvest.Descriptor, n)
	for i := range descs {
		descs[i] = harvest.Descriptor{
			URL: fmt.Sprintf("https://example.com/item/%d", i),
			Key: fmt.Sprintf("k%d", i),
		}
	}
	return descs
}

func TestScheduler_Run(t *testing.T) {
	t.Parallel()

	t.Run("reports every descriptor exactly once", func(t *testing.T) {
		t.Parallel()

		s := extract.NewScheduler(4)
		seen := make(map[string]int)

		admitted := s.Run(context.Background(), descriptors(20), nil,
			func(_ context.Context, d harvest.Descriptor) (*harvest.Result, error) {
				return &harvest.Result{Key: d.Key}, nil
			},
			func(c extract.Completion) {
				seen[c.Descriptor.Key]++
			})

		assert.Equal(t, 20, admitted)
		require.Len(t, seen, 20)
		for key, n := range seen {
			assert.Equal(t, 1, n, key)
		}
	})

	t.Run("never exceeds the concurrency limit", func(t *testing.T) {
		t.Parallel()

		const limit = 3
		s := extract.NewScheduler(limit)
		var inFlight, maxInFlight atomic.Int32

		s.Run(context.Background(), descriptors(15), nil,
			func(_ context.Context, _ harvest.Descriptor) (*harvest.Result, error) {
				n := inFlight.Add(1)
				for {
					m := maxInFlight.Load()
					if n <= m || maxInFlight.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return nil, nil
			},
			func(extract.Completion) {})

		assert.LessOrEqual(t, maxInFlight.Load(), int32(limit))
		assert.Positive(t, maxInFlight.Load())
	})

	t.Run("reports completions in finish order", func(t *testing.T) {
		t.Parallel()

		s := extract.NewScheduler(2)
		var order []string

		s.Run(context.Background(), descriptors(2), nil,
			func(_ context.Context, d harvest.Descriptor) (*harvest.Result, error) {
				if d.Key == "k0" {
					time.Sleep(100 * time.Millisecond)
				}
				return nil, nil
			},
			func(c extract.Completion) {
				order = append(order, c.Descriptor.Key)
			})

		assert.Equal(t, []string{"k1", "k0"}, order)
	})

	t.Run("completion callbacks are never concurrent", func(t *testing.T) {
		t.Parallel()

		s := extract.NewScheduler(8)
		var inCallback, overlaps atomic.Int32

		s.Run(context.Background(), descriptors(30), nil,
			func(_ context.Context, _ harvest.Descriptor) (*harvest.Result, error) {
				return nil, nil
			},
			func(extract.Completion) {
				if inCallback.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(time.Millisecond)
				inCallback.Add(-1)
			})

		assert.Zero(t, overlaps.Load())
	})

	t.Run("abort stops admission but finishes admitted work", func(t *testing.T) {
		t.Parallel()

		s := extract.NewScheduler(1)
		abort := make(chan struct{})
		var once sync.Once
		var completed []string

		admitted := s.Run(context.Background(), descriptors(5), abort,
			func(_ context.Context, _ harvest.Descriptor) (*harvest.Result, error) {
				once.Do(func() { close(abort) })
				return nil, nil
			},
			func(c extract.Completion) {
				completed = append(completed, c.Descriptor.Key)
			})

		assert.Equal(t, 1, admitted)
		assert.Equal(t, []string{"k0"}, completed)
	})

	t.Run("passes task errors through to completions", func(t *testing.T) {
		t.Parallel()

		s := extract.NewScheduler(2)
		var failed int

		s.Run(context.Background(), descriptors(4), nil,
			func(_ context.Context, d harvest.Descriptor) (*harvest.Result, error) {
				if d.Key == "k2" {
					return nil, &harvest.FetchError{Kind: harvest.KindClient}
				}
				return &harvest.Result{Key: d.Key}, nil
			},
			func(c extract.Completion) {
				if c.Err != nil {
					failed++
					assert.Equal(t, "k2", c.Descriptor.Key)
					assert.Nil(t, c.Result)
				}
			})

		assert.Equal(t, 1, failed)
	})

	t.Run("canceled context stops admission", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		s := extract.NewScheduler(1)
		var reported int

		admitted := s.Run(ctx, descriptors(10), nil,
			func(ctx context.Context, _ harvest.Descriptor) (*harvest.Result, error) {
				cancel()
				return nil, ctx.Err()
			},
			func(extract.Completion) { reported++ })

		assert.Less(t, admitted, 10)
		assert.Equal(t, admitted, reported)
	})
}
