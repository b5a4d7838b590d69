// Package printer renders CLI output: status lines, formatted errors, and the
// session, maturity and budget views.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/dyluth/ideabid/internal/archive"
	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/pkg/bidding"
)

func init() {
	// Users can disable color with NO_COLOR
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	bold    = color.New(color.Bold)
	magenta = color.New(color.FgMagenta)

	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Tests use it to capture text.
func SetOutput(stdout, stderr io.Writer) {
	out, errOut = stdout, stderr
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	green.Fprintf(out, "✓ %s", strings.TrimPrefix(fmt.Sprintf(format, a...), "✓ "))
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(out, format, a...)
}

// Warning prints a warning message in yellow
func Warning(format string, a ...any) {
	yellow.Fprintf(out, "⚠️  %s", strings.TrimPrefix(fmt.Sprintf(format, a...), "⚠️  "))
}

// Step prints a step message with emphasis
func Step(format string, a ...any) {
	cyan.Fprintf(out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation, and suggestions to stderr
// and returns a plain error for Cobra, which has its own printing silenced.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between the explanation
// and the suggestions. Keys are printed in sorted order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(errOut, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(errOut, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(errOut)
		for _, k := range keys {
			fmt.Fprintf(errOut, "  %s: %s\n", k, context[k])
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(errOut, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(errOut, "\nEither:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(errOut, "  %d. %s\n", i+1, suggestion)
		}
	}

	return fmt.Errorf("%s", title)
}

// Phase prints a banner when a session enters a new phase.
func Phase(phase bidding.Phase) {
	bold.Fprintf(out, "\n── %s ──\n", strings.ToUpper(string(phase)))
}

// Message prints one persona utterance. Bids are highlighted and fallback content
// is marked.
func Message(name string, m *bidding.Message) {
	cyan.Fprintf(out, "[%s r%d] ", name, m.Round)
	if m.BidValue != nil {
		if *m.BidValue > 0 {
			green.Fprintf(out, "(bid %d) ", *m.BidValue)
		} else {
			yellow.Fprint(out, "(pass) ")
		}
	}
	fmt.Fprintf(out, "%s", m.Content)
	if m.Fallback {
		magenta.Fprint(out, " [fallback]")
	}
	fmt.Fprintln(out)
}

// Report prints the result of a completed session.
func Report(r *bidding.Report) {
	bold.Fprintln(out, "\nResult")
	fmt.Fprintf(out, "  %s\n", r.Summary)
	if r.HighestBid > 0 {
		fmt.Fprintf(out, "  Highest bid:  %d (%s)\n", r.HighestBid, r.WinningPersona)
		fmt.Fprintf(out, "  Average bid:  %.1f\n", r.AverageBid)
	}
	fmt.Fprintf(out, "  Messages:     %d (%d fallback)\n", r.MessageCount, r.FallbackCount)
}

// Maturity prints a maturity assessment, weakest dimensions flagged.
func Maturity(r *maturity.Result) {
	levelColor := green
	switch r.Level {
	case maturity.LevelLow, maturity.LevelGrayLow:
		levelColor = red
	case maturity.LevelMedium, maturity.LevelGrayHigh:
		levelColor = yellow
	}

	bold.Fprint(out, "\nMaturity ")
	levelColor.Fprintf(out, "%.1f %s", r.TotalScore, r.Level)
	fmt.Fprintf(out, " (confidence %.2f)\n", r.Confidence)

	weak := make(map[maturity.Dimension]bool, len(r.WeakDimensions))
	for _, d := range r.WeakDimensions {
		weak[d] = true
	}

	for _, d := range maturity.Dimensions {
		ds, ok := r.Dimensions[d]
		if !ok {
			continue
		}
		marker := " "
		if weak[d] {
			marker = "!"
		}
		fmt.Fprintf(out, "  %s %-15s %4.1f  %s\n", marker, d, ds.Score, ds.Status)
		for _, quote := range ds.Evidence {
			fmt.Fprintf(out, "      \"%s\"\n", quote)
		}
	}

	fmt.Fprintf(out, "  Signals: %d strong, %d compliments, %d generalities, %d future promises\n",
		r.ValidSignals.Total(), r.InvalidSignals.Compliments, r.InvalidSignals.Generalities, r.InvalidSignals.FuturePromises)
}

// Budgets prints a budget table.
func Budgets(entries []*bidding.BudgetEntry) {
	for _, e := range entries {
		fmt.Fprintf(out, "  %-24s %5d / %5d\n", e.PersonaID, e.Remaining, e.Total)
	}
}

// Personas prints the roster in speaking order.
func Personas(roster []bidding.Persona) {
	for _, p := range roster {
		bold.Fprintf(out, "%s", p.Name)
		fmt.Fprintf(out, " (%s) %s, %s via %s\n", p.ID, p.Title, p.BiddingStyle, p.PrimaryProvider)
		fmt.Fprintf(out, "    %s\n", strings.Join(p.PersonalityKeywords, ", "))
	}
}

// History prints archived sessions, most recent first.
func History(entries []archive.Entry) {
	if len(entries) == 0 {
		Info("No archived sessions.\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-36s  %-9s  bid %4d  maturity %4.1f %-9s  %s\n",
			e.EndedAt.Format("2006-01-02 15:04"), e.SessionID, e.Status, e.HighestBid,
			e.MaturityTotal, e.MaturityLevel, truncate(e.IdeaText, 40))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
