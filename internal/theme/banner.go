package theme

import (
	"fmt"
	"io"
)

// Banner returns the CLI banner: a lens over a timeline.
func Banner() string {
	// ANSI colors
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"   ◉───◉   " + magenta + "PERSONA LENS" + reset + "   ◉───◉\n" +
		cyan + "     ╭──────╮\n" + reset +
		cyan + "    ( ◎    ◎ )──── @timeline\n" + reset +
		cyan + "     ╰──────╯\n" + reset +
		yellow + "   ─────────────────────────────────\n" + reset +
		"   posts · cadence · profile headers\n"
	return art
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}
