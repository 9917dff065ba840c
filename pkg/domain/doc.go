/*
Package domain contains the core domain models of the lander funnel controller.

It defines the fundamental entities of the funnel state machine, such as Scripts,
Steps, scripted Messages and the session State. This package is kept pure and free
of external dependencies like I/O, timers or transport, following Hexagonal
Architecture principles.

# Key Entities

  - Script: A funnel variant (ordered steps, scripted messages, loader phases, countdown).
  - State: The runtime snapshot of a session (step, answers, revealed prefix, flags).
  - Event / Effect: Inputs to the transition function and the timer requests it returns.
  - Snapshot: The read-only render boundary handed to views.
*/
package domain
