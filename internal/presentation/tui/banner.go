package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the lander ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.EnvColorProfile()
	// Warm gradient (Amber to Rose)
	lines := []struct{ text, color string }{
		{"  _                     _", "#fbbf24"},
		{" | |    __ _ _ __   __| | ___ _ __", "#f59e0b"},
		{" | |   / _` | '_ \\ / _` |/ _ \\ '__|", "#f97316"},
		{" | |__| (_| | | | | (_| |  __/ |", "#fb7185"},
		{" |_____\\__,_|_| |_|\\__,_|\\___|_|", "#f43f5e"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
