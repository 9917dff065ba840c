/*
Package lander is a scripted lead-funnel controller.

A funnel is a short, linear script: question steps that wait for an answer, a loading step
that cycles through status phases on its own, and a terminal step that shows a generated
reference code and a reservation countdown next to a call action. Assistant messages are
revealed one at a time after a simulated typing delay.

# Architecture

The transition function (internal/runtime) is pure: it takes a session State and an Event
and returns the next State plus timer Effects. Every timer is owned by the step epoch that
scheduled it, so leaving a step cancels its timers and late callbacks are discarded.
pkg/runner executes those effects against a ports.Scheduler and publishes Snapshots, and
pkg/session keeps many runners alive behind HTTP (pkg/adapters/http) or MCP (pkg/adapters/mcp).

# Usage

	l, err := lander.New("") // embedded funnels: chat, quiz, auto
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	h := runner.NewTextHandler(os.Stdin, os.Stdout)
	if _, err := l.Play(ctx, "quiz", "", h); err != nil {
		log.Fatal(err)
	}
*/
package lander
