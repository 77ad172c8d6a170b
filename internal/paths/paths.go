package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "provision"

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories.
const DefaultDirPerm = 0o755

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm is used. It returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory, or "" when it cannot be resolved.
// Use ResolveHome for proper error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", errors.Wrap(ErrHomeDirNotFound, "resolving home")
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// CacheHome returns the XDG cache home directory.
func CacheHome() string {
	return xdg.CacheHome
}

// StateHome returns the XDG state home directory.
func StateHome() string {
	return xdg.StateHome
}

// ConfigDir returns <ConfigHome>/provision.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// DownloadCacheDir returns the directory used for downloaded archives.
// Returns: <CacheHome>/provision/downloads
func DownloadCacheDir() string {
	return filepath.Join(CacheHome(), AppName, "downloads")
}

// BackupDir returns the root directory for profile snapshots.
// Returns: <StateHome>/provision/backups
func BackupDir() string {
	return filepath.Join(StateHome(), AppName, "backups")
}

// AndroidSDKRoot returns the conventional Android SDK location for goos.
//
//   - linux:   ~/Android/Sdk
//   - darwin:  ~/Library/Android/sdk
//   - windows: %LOCALAPPDATA%\Android\Sdk
func AndroidSDKRoot(goos, home string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Android", "sdk")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Android", "Sdk")
		}
		return filepath.Join(home, "AppData", "Local", "Android", "Sdk")
	default:
		return filepath.Join(home, "Android", "Sdk")
	}
}

// FlutterDir returns the default managed Flutter SDK checkout: ~/development/flutter.
func FlutterDir(home string) string {
	return filepath.Join(home, "development", "flutter")
}

// CargoBin returns the directory rustup installs cargo binaries into.
// CARGO_HOME takes precedence over ~/.cargo.
func CargoBin(home string) string {
	if ch := os.Getenv("CARGO_HOME"); ch != "" {
		return filepath.Join(ch, "bin")
	}
	return filepath.Join(home, ".cargo", "bin")
}

// ProfileFor returns the shell startup file that receives environment
// bindings for the given login shell path ($SHELL).
//
//   - zsh:  ~/.zshrc
//   - bash: ~/.bashrc
//   - anything else: ~/.profile
func ProfileFor(shell, home string) string {
	switch filepath.Base(shell) {
	case "zsh":
		return filepath.Join(home, ".zshrc")
	case "bash":
		return filepath.Join(home, ".bashrc")
	default:
		return filepath.Join(home, ".profile")
	}
}

// Expand replaces a leading "~" with the home directory.
func Expand(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		return filepath.Join(home, path[2:])
	}
	return path
}
