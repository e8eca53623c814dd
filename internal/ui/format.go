package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	apperrors "mlprep/pkg/errors"
)

var (
	// Output receives all terminal output.
	Output io.Writer = os.Stdout

	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// SetColor forces colored output on or off.
func SetColor(enabled bool) {
	supportsColor = enabled
	color.NoColor = !enabled
}

func init() {
	color.NoColor = !supportsColor
}

// colorFunc returns a function that colors text if supported
func colorFunc(c string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, c)
		}
		return text
	}
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(Output, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Output, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(Output, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays an error with its cause chain and suggestions
func ShowError(err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(Output, "\n%s %s\n", ColorError("ERROR:"), err.Error())
		return
	}

	fmt.Fprintf(Output, "\n%s [%s] %s\n", ColorError("ERROR:"), appErr.Code, appErr.Message)
	for cause := appErr.Cause; cause != nil; {
		var inner *apperrors.AppError
		if errors.As(cause, &inner) && inner != nil {
			fmt.Fprintf(Output, "  %s\n", ColorDim(fmt.Sprintf("caused by [%s] %s", inner.Code, inner.Message)))
			cause = inner.Cause
			continue
		}
		fmt.Fprintf(Output, "  %s\n", ColorDim("caused by "+cause.Error()))
		break
	}

	for _, s := range suggestions(err) {
		fmt.Fprintf(Output, "  %s %s\n", ColorInfo("TIP:"), s)
	}
}

// suggestions collects the suggestions of every AppError in the chain,
// outermost first, without duplicates.
func suggestions(err error) []string {
	var out []string
	seen := map[string]bool{}
	for err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			break
		}
		for _, s := range appErr.Suggestions {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		err = appErr.Cause
	}
	return out
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorInfo("INFO:"), message)
}
