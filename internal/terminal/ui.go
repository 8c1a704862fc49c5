package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Colors for terminal output.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
)

var (
	out   io.Writer = os.Stdout
	color           = isTerminal(os.Stdout)
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
}

// SetOutput redirects UI output. Colour is enabled only when w is a
// terminal.
func SetOutput(w io.Writer) {
	out = w
	f, ok := w.(*os.File)
	color = ok && isTerminal(f)
}

// style wraps s in the given codes when colour is on.
func style(s string, codes ...string) string {
	if !color || len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + Reset
}

// Success prints a green success message.
func Success(msg string) {
	fmt.Fprintf(out, "%s %s\n", style("✓", Bold, Green), msg)
}

// Error prints a red error message.
func Error(msg string) {
	fmt.Fprintf(out, "%s %s\n", style("✗", Bold, Red), msg)
}

// Info prints a blue info message.
func Info(msg string) {
	fmt.Fprintf(out, "%s %s\n", style("i", Bold, Blue), msg)
}

// Warning prints a yellow warning message.
func Warning(msg string) {
	fmt.Fprintf(out, "%s %s\n", style("!", Bold, Yellow), msg)
}

// Header prints a bold header.
func Header(msg string) {
	fmt.Fprintf(out, "\n%s\n", style(msg, Bold))
}

// Detail prints an indented detail line.
func Detail(label, value string) {
	fmt.Fprintf(out, "  %s %s\n", style(label+":", Dim), value)
}
