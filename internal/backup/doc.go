// Package backup snapshots shell profiles before provision rewrites them.
//
// Each snapshot is a timestamped directory under the state directory:
//
//	~/.local/state/provision/backups/
//	└── {timestamp}/
//	    ├── manifest.json
//	    └── {copied files...}
//
// The manifest records each file's original path, permissions, and SHA256
// hash. [Manager.Restore] verifies the hash before copying a file back and
// returns [ErrBackupCorrupted] on mismatch.
//
// [Guard] is the hook used by the profile store: it snapshots a file once
// per run, right before the first write, and prunes snapshots beyond the
// retention count.
//
//	guard := backup.NewGuard(backup.NewManager(backup.WithRetentionCount(5)))
//	store := envstore.NewProfileStore(fs, profile, env)
//	store.BeforeWrite = guard.EnsureBackedUp
package backup
