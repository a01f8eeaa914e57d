package eval

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// PrintResults writes the textual eval report to w. Only failing checks are
// listed. Colors are used when w is a terminal.
func PrintResults(w io.Writer, results []Result) {
	r := lipgloss.NewRenderer(w)
	pass := r.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	fail := r.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

	fmt.Fprintln(w, "\n=== Eval Results ===")
	fmt.Fprintln(w)
	for _, res := range results {
		status := pass.Render("PASS")
		if !res.Passed {
			status = fail.Render("FAIL")
		}
		fmt.Fprintf(w, "[%s] %s (%dms, %d cycles, %d facts)\n",
			status, res.EvalID, res.Duration.Milliseconds(), res.Cycles, res.FactCount)
		if res.Error != "" {
			fmt.Fprintf(w, "      Error: %s\n", res.Error)
		}
		for _, c := range res.FailedChecks() {
			fmt.Fprintf(w, "      FAIL: %s - expected %s, got %s\n", c.Name, c.Expected, c.Actual)
		}
	}

	s := Summarize(results)
	fmt.Fprintln(w, "\n===================")
	fmt.Fprintf(w, "Total: %d | Passed: %d | Failed: %d\n", s.Total, s.Passed, s.Failed)
	fmt.Fprintln(w, "===================")
	fmt.Fprintln(w)
}
