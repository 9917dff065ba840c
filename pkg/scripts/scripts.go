// Package scripts embeds the built-in funnel variants.
package scripts

import (
	"embed"
	"io/fs"
	"log/slog"

	"github.com/aretw0/lander/pkg/adapters/file"
	"github.com/aretw0/lander/pkg/ports"
)

//go:embed *.yaml
var documents embed.FS

// Built-in script IDs.
const (
	Chat = "chat"
	Quiz = "quiz"
	Auto = "auto"
)

// FS exposes the embedded documents.
func FS() fs.FS {
	return documents
}

// Loader returns a loader over the built-in scripts.
func Loader(logger *slog.Logger) ports.ScriptLoader {
	return file.New(documents, file.WithLogger(logger))
}
