/*
Package observability turns funnel lifecycle hooks into Prometheus metrics and
structured log lines.

Both are plain domain.LifecycleHooks, so they can be merged and attached to a
Runner or a session Manager without either knowing about metrics or logging.
*/
package observability
