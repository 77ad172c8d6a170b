package backup

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/provision/internal/backup"
	"github.com/thoreinstein/provision/internal/errors"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "number of snapshots to keep (default: backup.retention)")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old snapshots",
	Long:  `Remove snapshots beyond the retention count, oldest first.`,
	Example: `  provision backup prune
  provision backup prune --keep 2`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr := newManager()
		if pruneKeep > 0 {
			mgr = backup.NewManager(backup.WithBackupDir(mgr.Dir()), backup.WithRetentionCount(pruneKeep))
		}
		return runPrune(cmd.OutOrStdout(), mgr)
	},
}

func runPrune(w io.Writer, mgr *backup.Manager) error {
	before, err := mgr.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrap(err, "listing backups")
	}
	if err := mgr.Prune(); err != nil {
		return errors.Wrap(err, "pruning backups")
	}
	after, err := mgr.List()
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return errors.Wrap(err, "listing backups")
	}
	fmt.Fprintf(w, "removed %d snapshots, %d kept\n", len(before)-len(after), len(after))
	return nil
}
