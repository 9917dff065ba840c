package runner

import (
	"context"

	"github.com/aretw0/lander/pkg/domain"
)

// IOHandler defines the strategy for interacting with a player.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents a new snapshot. diff holds what changed since the previous
	// call and is never nil; the first call receives a diff of the whole snapshot.
	Output(ctx context.Context, snap domain.Snapshot, diff *domain.SnapshotDiff) error

	// Input reads a raw answer. It is only called while the snapshot awaits input.
	Input(ctx context.Context) (string, error)
}

// ContentRenderer is a function that transforms assistant text before outputting it.
// This allows terminal rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
