package ports

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lander/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunScriptLoaderContract verifies that a ScriptLoader lists exactly wantIDs, in order,
// serves each of them as a valid script and reports unknown IDs as domain.ErrFunnelNotFound.
func RunScriptLoaderContract(t *testing.T, loader ScriptLoader, wantIDs []string) {
	t.Run("List Is Sorted", func(t *testing.T) {
		ids, err := loader.List()
		require.NoError(t, err)
		want := append([]string(nil), wantIDs...)
		sort.Strings(want)
		assert.Equal(t, want, ids)
	})

	t.Run("Load Known", func(t *testing.T) {
		for _, id := range wantIDs {
			s, err := loader.Load(id)
			require.NoError(t, err, "Load(%q)", id)
			assert.Equal(t, id, s.ID)
			assert.NoError(t, s.Validate(), "script %q should be valid", id)
		}
	})

	t.Run("Load Unknown", func(t *testing.T) {
		_, err := loader.Load("does-not-exist")
		assert.ErrorIs(t, err, domain.ErrFunnelNotFound)
	})
}

// RunSchedulerContract runs a suite of tests to verify that a Scheduler implementation
// adheres to the defined interface contract. advance must let at least d elapse on the
// scheduler's clock (a sleep for real clocks, a virtual step for fake ones).
func RunSchedulerContract(t *testing.T, newScheduler func() Scheduler, advance func(Scheduler, time.Duration)) {
	t.Run("Fires Once And Forgets", func(t *testing.T) {
		s := newScheduler()
		defer s.Stop()

		var mu sync.Mutex
		fired := 0
		s.After(1, 20*time.Millisecond, func() {
			mu.Lock()
			fired++
			mu.Unlock()
		})
		assert.Equal(t, 1, s.Live())

		advance(s, 100*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, fired)
		assert.Equal(t, 0, s.Live(), "fired one-shot timers must be released")
	})

	t.Run("Relative Order", func(t *testing.T) {
		s := newScheduler()
		defer s.Stop()

		var mu sync.Mutex
		var order []string
		record := func(name string) func() {
			return func() {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
			}
		}
		s.After(1, 90*time.Millisecond, record("third"))
		s.After(1, 30*time.Millisecond, record("first"))
		s.After(1, 60*time.Millisecond, record("second"))

		advance(s, 200*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"first", "second", "third"}, order)
	})

	t.Run("Cancel By Owner", func(t *testing.T) {
		s := newScheduler()
		defer s.Stop()

		var mu sync.Mutex
		fired := map[uint64]int{}
		mark := func(owner uint64) func() {
			return func() {
				mu.Lock()
				fired[owner]++
				mu.Unlock()
			}
		}
		s.After(7, 40*time.Millisecond, mark(7))
		s.After(7, 50*time.Millisecond, mark(7))
		s.After(8, 40*time.Millisecond, mark(8))

		require.Equal(t, 2, s.Cancel(7))
		assert.Equal(t, 0, s.Cancel(7), "cancelling twice is a no-op")
		assert.Equal(t, 1, s.Live())

		advance(s, 150*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, fired[7], "cancelled owner must never fire")
		assert.Equal(t, 1, fired[8])
	})

	t.Run("Every Until Cancelled", func(t *testing.T) {
		s := newScheduler()
		defer s.Stop()

		var mu sync.Mutex
		ticks := 0
		s.Every(3, 20*time.Millisecond, func() {
			mu.Lock()
			ticks++
			mu.Unlock()
		})

		advance(s, 110*time.Millisecond)
		require.Equal(t, 1, s.Cancel(3))

		mu.Lock()
		seen := ticks
		mu.Unlock()
		assert.GreaterOrEqual(t, seen, 2)

		advance(s, 100*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		// A callback already in flight when Cancel ran may still land once.
		assert.LessOrEqual(t, ticks, seen+1, "cancelled interval must stop ticking")
		assert.Equal(t, 0, s.Live())
	})

	t.Run("Stop Clears Everything", func(t *testing.T) {
		s := newScheduler()
		s.After(1, time.Hour, func() {})
		s.Every(2, time.Hour, func() {})
		assert.Equal(t, 2, s.Live())

		s.Stop()
		assert.Equal(t, 0, s.Live())
	})
}
