package domain

import "errors"

// ErrSessionNotFound is returned when a session ID is not live.
var ErrSessionNotFound = errors.New("session not found")

// ErrFunnelNotFound is returned when a script ID is not in the catalog.
var ErrFunnelNotFound = errors.New("funnel not found")

// ErrNotInteractive is returned when an answer is submitted outside a question step.
var ErrNotInteractive = errors.New("current step does not accept answers")

// ErrSessionClosed is returned when an event reaches a session that already ended.
var ErrSessionClosed = errors.New("session closed")
