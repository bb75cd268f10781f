package theme

import (
	"fmt"
	"io"
)

// ANSI colors for the banner and status lines.
const (
	magenta = "\033[35m"
	yellow  = "\033[33m"
	cyan    = "\033[36m"
	dim     = "\033[2m"
	reset   = "\033[0m"
)

// Banner returns the startup banner.
func Banner() string {
	art := "" +
		magenta + "   ┌─────────────┐\n" + reset +
		magenta + "   │  ◯      ·   │" + reset + "   " + yellow + "insta" + reset + "\n" +
		magenta + "   │     ( )     │" + reset + "   " + dim + "feed, follows and messages" + reset + "\n" +
		magenta + "   │             │" + reset + "   " + dim + "from the terminal" + reset + "\n" +
		magenta + "   └─────────────┘\n" + reset
	return art
}

// PrintBanner prints the banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}

// Heart renders a like marker.
func Heart(liked bool) string {
	if liked {
		return magenta + "♥" + reset
	}
	return "♡"
}

// Handle renders a user name.
func Handle(userName string) string {
	return cyan + "@" + userName + reset
}
