package ports

import "time"

// Handle identifies a single scheduled timer.
type Handle uint64

// Scheduler defines how the runner requests delayed callbacks.
// Every timer belongs to an owner (the epoch of the step or phase that created it)
// and can only be cancelled as part of that owner's group.
type Scheduler interface {
	// After runs fn once, after delay. Timers with distinct due times fire in due order;
	// the order of timers due at the same instant is up to the implementation.
	After(owner uint64, delay time.Duration, fn func()) Handle

	// Every runs fn repeatedly at the given interval until its owner is cancelled.
	Every(owner uint64, interval time.Duration, fn func()) Handle

	// Cancel stops every live timer of the owner and returns how many were stopped.
	Cancel(owner uint64) int

	// Live returns the number of timers that have not fired (one-shot) or been cancelled.
	Live() int

	// Stop cancels all timers. The scheduler must not be used afterwards.
	Stop()
}
