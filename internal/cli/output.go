package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/five82/lector/internal/results"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgCyan, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
)

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, format+"\n", args...)
}

// PrintError writes err the way lector reports fatal errors.
func PrintError(w io.Writer, err error) {
	errorColor.Fprint(w, "lector: ")
	fmt.Fprintln(w, err)
}

const listPreviewRunes = 60

func printResults(w io.Writer, items []results.Result) {
	if len(items) == 0 {
		mutedColor.Fprintln(w, "No results.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tCREATED\tPREVIEW")
	for _, r := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Filename, formatTime(r), clip(oneLine(r.Preview), listPreviewRunes))
	}
	_ = tw.Flush()
}

func printResult(w io.Writer, r results.Result) {
	headerColor.Fprintln(w, r.Filename)
	mutedColor.Fprintf(w, "id %s, %s\n\n", r.ID, formatTime(r))
	text := r.TextContent
	if strings.TrimSpace(text) == "" {
		mutedColor.Fprintln(w, "(no text extracted)")
		return
	}
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))
}

func formatTime(r results.Result) string {
	ts := r.ParsedTimestamp()
	if ts.IsZero() {
		return r.Timestamp
	}
	return ts.Local().Format(time.DateTime)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}
