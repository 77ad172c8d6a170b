package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/provision/internal/backup"
	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/errors"
)

// chooser picks a snapshot when restore gets no id.
type chooser interface {
	Select(title string, options []string) (int, error)
}

func init() {
	Cmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [id]",
	Short: "Restore a snapshot",
	Long: `Copy the files of a snapshot back to their original locations after
verifying their checksums. Without an id, choose from the list.`,
	Example: `  provision backup restore
  provision backup restore 20261014T101500`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return runRestore(cmd.OutOrStdout(), newManager(), prompt.NewSelectorWithIO(os.Stdin, cmd.ErrOrStderr()), id)
	},
}

func runRestore(w io.Writer, mgr *backup.Manager, sel chooser, id string) error {
	if id == "" {
		manifests, err := mgr.List()
		if err != nil {
			if errors.Is(err, backup.ErrNoBackupsFound) {
				return errors.NewUserError(err, "provision snapshots the profile before its first edit")
			}
			return errors.Wrap(err, "listing backups")
		}

		options := make([]string, len(manifests))
		for i, m := range manifests {
			options[i] = fmt.Sprintf("%s  (%d files, %s)", m.ID, len(m.Files), m.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		idx, err := sel.Select("Restore which snapshot", options)
		if err != nil {
			return errors.Wrap(err, "selecting snapshot")
		}
		id = manifests[idx].ID
	}

	manifest, err := mgr.Restore(id)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.NewUserError(err, "Run: provision backup list")
		}
		return errors.Wrapf(err, "restoring %s", id)
	}

	for _, f := range manifest.Files {
		fmt.Fprintf(w, "restored %s\n", f.OriginalPath)
	}
	return nil
}
