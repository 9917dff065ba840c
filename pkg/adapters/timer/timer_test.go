package timer_test

import (
	"testing"
	"time"

	"github.com/aretw0/lander/pkg/adapters/timer"
	"github.com/aretw0/lander/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestRealtime_Contract(t *testing.T) {
	ports.RunSchedulerContract(t,
		func() ports.Scheduler { return timer.NewRealtime() },
		func(_ ports.Scheduler, d time.Duration) { time.Sleep(d) },
	)
}

func TestManual_Contract(t *testing.T) {
	ports.RunSchedulerContract(t,
		func() ports.Scheduler { return timer.NewManual() },
		func(s ports.Scheduler, d time.Duration) { s.(*timer.Manual).Advance(d) },
	)
}

func TestManual_NestedSchedulingUsesFireTime(t *testing.T) {
	m := timer.NewManual()

	var at []time.Duration
	m.After(1, time.Second, func() {
		at = append(at, m.Now())
		m.After(1, time.Second, func() {
			at = append(at, m.Now())
		})
	})

	m.Advance(5 * time.Second)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, at)
	assert.Equal(t, 5*time.Second, m.Now())
	assert.Zero(t, m.Live())
}

func TestManual_TiesFireInSchedulingOrder(t *testing.T) {
	m := timer.NewManual()

	var order []int
	for i := 1; i <= 3; i++ {
		m.After(1, time.Second, func() { order = append(order, i) })
	}
	m.Advance(time.Second)

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRealtime_StoppedDropsNewTimers(t *testing.T) {
	s := timer.NewRealtime()
	s.Stop()

	assert.Equal(t, ports.Handle(0), s.After(1, time.Millisecond, func() {}))
	assert.Equal(t, 0, s.Live())
}
