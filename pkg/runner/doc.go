/*
Package runner drives a funnel session.

A Runner owns one session: it holds the current state, feeds events through the
pure runtime transition function one at a time, executes the timer effects it
returns on a ports.Scheduler and publishes the resulting snapshots to subscribers.

Timer callbacks and user answers share a single FIFO event queue, so every
callback runs to completion before the next event is applied. A callback whose
owning step has moved on is discarded without touching the state.

# Key Components

  - Runner: The per-session driver (Submit, Tick, Snapshot, Subscribe, Close).
  - Play: A console loop that binds a Runner to an IOHandler.
  - TextHandler / JSONHandler: Line-oriented handlers for terminals and pipes.

# Usage

	r := runner.New(engine, "sess-1", "",
		runner.WithLogger(logger),
		runner.WithHooks(metrics.Hooks()),
	)
	defer r.Close()

	if err := runner.Play(ctx, r, runner.NewTextHandler(os.Stdin, os.Stdout)); err != nil {
		log.Fatal(err)
	}
*/
package runner
