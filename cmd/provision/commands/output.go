package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/provision"
)

var statusColors = map[provision.Status]*color.Color{
	provision.StatusOK:       color.New(color.FgGreen),
	provision.StatusChanged:  color.New(color.FgCyan, color.Bold),
	provision.StatusSkipped:  color.New(color.FgHiBlack),
	provision.StatusPending:  color.New(color.FgYellow),
	provision.StatusWarning:  color.New(color.FgYellow, color.Bold),
	provision.StatusAdvisory: color.New(color.FgMagenta),
	provision.StatusFatal:    color.New(color.FgRed, color.Bold),
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding JSON")
}

// printSummary renders the step table, the status counts and any
// follow-up actions.
func printSummary(w io.Writer, r *provision.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSTATUS\tDETAIL")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.ID, colorStatus(res.Status), res.Message)
	}
	_ = tw.Flush()

	var counts []string
	for _, st := range provision.Statuses {
		if n := r.Counts[st]; n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", n, st))
		}
	}
	fmt.Fprintf(w, "\n%s on %s: %s\n", r.Mode, r.Host, strings.Join(counts, ", "))

	if r.Fatal != "" {
		fmt.Fprintf(w, "stopped: %s\n", r.Fatal)
	}
	if len(r.NextSteps) > 0 {
		fmt.Fprintln(w, "\nNext steps:")
		for _, s := range r.NextSteps {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

func colorStatus(st provision.Status) string {
	if c, ok := statusColors[st]; ok {
		return c.Sprint(string(st))
	}
	return string(st)
}
