// Package backup provides CLI commands for managing shell profile snapshots.
package backup

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thoreinstein/provision/internal/backup"
)

// Version is recorded in new snapshots.
var Version = "dev"

// newManager opens the snapshot store; tests replace it.
var newManager = func() *backup.Manager {
	backup.Version = Version
	return backup.NewManager(backup.WithRetentionCount(viper.GetInt("backup.retention")))
}

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage shell profile snapshots",
	Long: `Before provision first edits your shell profile in a run, it stores a
snapshot of the file. This command group lists, restores and prunes those
snapshots.

Snapshots are kept in the user state directory; the newest
backup.retention snapshots are kept.`,
	Example: `  # List snapshots
  provision backup list

  # Restore the most recent one
  provision backup restore

  # Restore a specific snapshot
  provision backup restore 20261014T101500

  See Also:
    provision backup list    - List available snapshots
    provision backup restore - Restore a snapshot
    provision backup prune   - Remove old snapshots`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}
