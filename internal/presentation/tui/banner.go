package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ChefMate banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Warm gradient, tomato to basil.
	lines := []struct {
		text  string
		color string
	}{
		{`   ____ _           __ __  __       _       `, "#f87171"},
		{`  / ___| |__   ___ / _|  \/  | __ _| |_ ___ `, "#fb923c"},
		{` | |   | '_ \ / _ \ |_| |\/| |/ _` + "`" + ` | __/ _ \`, "#fbbf24"},
		{` | |___| | | |  __/  _| |  | | (_| | ||  __/`, "#a3e635"},
		{`  \____|_| |_|\___|_| |_|  |_|\__,_|\__\___|`, "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  your cooking assistant · "+version).Faint())
	fmt.Fprintln(w)
}
