/*
Package ports defines the driven ports (interfaces) for the lander funnel controller.

These interfaces decouple the core logic from external implementations, allowing
the runner to work with real or virtual clocks and with scripts loaded from any source.

# Key Interfaces

  - Scheduler: Owns timers on behalf of a step/phase and cancels them as a group.
  - ScriptLoader: Resolves funnel scripts by ID (embedded, filesystem or memory).
*/
package ports
