package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/provision/internal/backup"
	"github.com/thoreinstein/provision/internal/errors"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available snapshots",
	Long:  `List all profile snapshots, most recent first.`,
	Example: `  provision backup list
  provision backup list --json

  See Also:
    provision backup restore - Restore a snapshot`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runList(cmd.OutOrStdout(), newManager(), listJSON)
	},
}

// infoOutput represents a single snapshot in JSON output.
type infoOutput struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Files       []string  `json:"files"`
	ToolVersion string    `json:"tool_version"`
}

func runList(w io.Writer, mgr *backup.Manager, asJSON bool) error {
	manifests, err := mgr.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrap(err, "listing backups")
	}

	if asJSON {
		out := make([]infoOutput, len(manifests))
		for i, m := range manifests {
			out[i] = infoOutput{ID: m.ID, CreatedAt: m.CreatedAt, Files: originals(m), ToolVersion: m.ToolVersion}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(out), "encoding output")
	}

	if len(manifests) == 0 {
		fmt.Fprintln(w, color.HiBlackString("(no backups available in %s)", mgr.Dir()))
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("ID"), bold("CREATED"), bold("FILES"), bold("VERSION"))
	for _, m := range manifests {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			color.GreenString(m.ID),
			m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			len(m.Files),
			m.ToolVersion)
	}
	return errors.Wrap(tw.Flush(), "writing table")
}

func originals(m backup.Manifest) []string {
	out := make([]string, len(m.Files))
	for i, f := range m.Files {
		out[i] = f.OriginalPath
	}
	return out
}
