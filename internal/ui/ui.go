// Package ui provides terminal UI components using pterm.
package ui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"hippocratic/internal/builder"
	"hippocratic/internal/schema"
)

// Theme colors for consistent styling
var (
	ColorPrimary   = pterm.FgCyan
	ColorSecondary = pterm.FgLightBlue
	ColorSuccess   = pterm.FgGreen
	ColorWarning   = pterm.FgYellow
	ColorError     = pterm.FgRed
	ColorMuted     = pterm.FgGray
)

// UI wraps pterm components for hippocratic.
type UI struct {
	quiet   bool
	verbose bool
}

// New creates a new UI instance.
func New(quiet, verbose bool) *UI {
	if quiet {
		pterm.DisableOutput()
	}
	if verbose {
		pterm.EnableDebugMessages()
	}
	return &UI{quiet: quiet, verbose: verbose}
}

// Banner prints the application banner.
func (u *UI) Banner() {
	pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("hippo", pterm.NewStyle(ColorPrimary)),
		pterm.NewLettersFromStringWithStyle("cratic", pterm.NewStyle(ColorSecondary)),
	).Render()

	pterm.DefaultCenter.Println(
		ColorMuted.Sprint("Fuzzy Demographic Record Matching"),
	)
	u.println()
}

// Config prints the configuration summary.
func (u *UI) Config(metric string, threshold int, fields []schema.Field, normalize bool, sources []string) {
	pterm.DefaultSection.Println("Configuration")

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	data := [][]string{
		{"Metric", metric},
		{"Threshold", fmt.Sprintf("%d", threshold)},
		{"Fields", strings.Join(names, ", ")},
		{"Normalize", fmt.Sprintf("%v", normalize)},
		{"Sources", fmt.Sprintf("%d file(s)", len(sources))},
	}

	pterm.DefaultTable.WithData(data).Render()
	u.println()
}

// Phase prints a phase header.
func (u *UI) Phase(number int, total int, name string) {
	pterm.DefaultSection.WithLevel(2).Println(
		fmt.Sprintf("[%d/%d] %s", number, total, name),
	)
}

// Spinner creates a spinner for long operations.
func (u *UI) Spinner(message string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.
		WithRemoveWhenDone(true).
		Start(message)
	return spinner
}

// FileStatus prints status for a single input file.
func (u *UI) FileStatus(path string, status string, details string) {
	prefix := ColorPrimary.Sprintf("[%s]", path)
	switch status {
	case "ok":
		pterm.Success.Println(prefix, details)
	case "skip":
		pterm.Warning.Println(prefix, details)
	case "error":
		pterm.Error.Println(prefix, details)
	case "info":
		pterm.Info.Println(prefix, details)
	default:
		u.println(prefix, details)
	}
}

// FieldStats prints per-field tree statistics.
func (u *UI) FieldStats(stats *builder.BuildStats) {
	if stats == nil || len(stats.ByField) == 0 {
		return
	}
	pterm.DefaultTable.WithHasHeader().WithData(FieldStatsTable(stats)).Render()
	u.println()
}

// FieldStatsTable returns a header row followed by one row per field, sorted by field name.
func FieldStatsTable(stats *builder.BuildStats) pterm.TableData {
	fields := make([]string, 0, len(stats.ByField))
	for f := range stats.ByField {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	data := pterm.TableData{{"Field", "Values", "Records", "Height"}}
	for _, f := range fields {
		s := stats.ByField[schema.Field(f)]
		data = append(data, []string{
			f,
			fmt.Sprintf("%d", s.Values),
			fmt.Sprintf("%d", s.Records),
			fmt.Sprintf("%d", s.Height),
		})
	}
	return data
}

// Matches prints the matches for one query.
func (u *UI) Matches(query string, matches []builder.FieldMatch, limit int) {
	pterm.DefaultSection.WithLevel(2).Println(fmt.Sprintf("%q", query))

	if len(matches) == 0 {
		pterm.Info.Println(ColorMuted.Sprint("no matches"))
		return
	}

	pterm.DefaultTable.WithHasHeader().WithData(MatchTable(matches, limit)).Render()
	if limit > 0 && len(matches) > limit {
		pterm.Info.Printfln("%d more match(es) not shown", len(matches)-limit)
	}
	u.println()
}

// MatchTable returns a header row followed by up to limit match rows.
// A limit of zero or less shows every match.
func MatchTable(matches []builder.FieldMatch, limit int) pterm.TableData {
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	data := pterm.TableData{{"Distance", "Field", "Value", "Records"}}
	for _, m := range matches {
		ids := make([]string, len(m.Records))
		for i, id := range m.Records {
			ids[i] = string(id)
		}
		data = append(data, []string{
			fmt.Sprintf("%d", m.Distance),
			string(m.Field),
			m.Value,
			strings.Join(ids, ", "),
		})
	}
	return data
}

// FinalReport prints the final summary report.
func (u *UI) FinalReport(records int, queries int, comparisons int64, duration time.Duration) {
	pterm.DefaultSection.Println("Summary")

	throughput := float64(0)
	if duration.Seconds() > 0 {
		throughput = float64(records) / duration.Seconds()
	}

	panel := pterm.DefaultBox.WithTitle("Results").Sprint(
		fmt.Sprintf(
			"  Records:        %s\n"+
				"  Queries:        %s\n"+
				"  Comparisons:    %s\n"+
				"  Duration:       %s\n"+
				"  Throughput:     %s records/sec",
			pterm.FgGreen.Sprintf("%d", records),
			pterm.FgCyan.Sprintf("%d", queries),
			pterm.FgCyan.Sprintf("%d", comparisons),
			pterm.FgYellow.Sprint(duration.Round(time.Millisecond)),
			pterm.FgMagenta.Sprintf("%.0f", throughput),
		),
	)
	u.println(panel)
}

// println writes to stdout unless the UI is quiet. pterm printers are
// silenced by DisableOutput, plain fmt output is not.
func (u *UI) println(a ...interface{}) {
	if !u.quiet {
		fmt.Println(a...)
	}
}

// Error prints an error message. A quiet UI still reports errors on stderr.
func (u *UI) Error(message string) {
	if u.quiet {
		fmt.Fprintln(os.Stderr, "Error:", message)
		return
	}
	pterm.Error.Println(message)
}

// Warning prints a warning message.
func (u *UI) Warning(message string) {
	pterm.Warning.Println(message)
}

// Info prints an info message.
func (u *UI) Info(message string) {
	pterm.Info.Println(message)
}

// Debug prints a debug message (only in verbose mode).
func (u *UI) Debug(message string) {
	if u.verbose {
		pterm.Debug.Println(message)
	}
}

// Done prints the completion message.
func (u *UI) Done() {
	u.println()
	pterm.DefaultCenter.Println(
		ColorSuccess.Sprint("✓ Done!"),
	)
}
