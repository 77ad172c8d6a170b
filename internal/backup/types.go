package backup

import (
	"io/fs"
	"time"

	"github.com/cockroachdb/errors"
)

// Manifest format version for forward compatibility.
const ManifestVersion = 1

// DefaultRetentionCount is the default number of snapshots to retain.
const DefaultRetentionCount = 5

// idLayout formats snapshot identifiers (20261014T101500).
const idLayout = "20060102T150405"

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no snapshots exist.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a stored file no longer matches its
	// recorded SHA256 hash.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrNothingToBackUp indicates none of the requested paths exist.
	ErrNothingToBackUp = errors.New("no files to back up")
)

// Manifest contains metadata about a snapshot.
// It is stored as manifest.json in each snapshot directory.
type Manifest struct {
	// Version is the manifest format version for forward compatibility.
	Version int `json:"version" yaml:"version"`

	// CreatedAt is when the snapshot was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Files contains metadata for each saved file.
	Files []File `json:"files" yaml:"files"`

	// ToolVersion is the provision version that created this snapshot.
	ToolVersion string `json:"tool_version" yaml:"tool_version"`

	// ID is the snapshot identifier. It is the directory name and is not
	// stored in JSON.
	ID string `json:"-" yaml:"id"`
}

// File contains metadata for a single saved file.
type File struct {
	// OriginalPath is the absolute path where the file was located.
	OriginalPath string `json:"original_path" yaml:"original_path"`

	// RelPath is the relative path within the snapshot directory.
	RelPath string `json:"rel_path" yaml:"rel_path"`

	// SHA256Hash is the hex-encoded SHA256 hash of the file contents.
	SHA256Hash string `json:"sha256_hash" yaml:"sha256_hash"`

	// Mode is the file's permission bits.
	Mode fs.FileMode `json:"mode" yaml:"mode"`
}
