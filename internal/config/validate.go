package config

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// Validation errors for configuration fields.
var (
	// ErrVersionTooLow indicates the version field is below the minimum.
	ErrVersionTooLow = errors.New("version must be >= 1")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidValue indicates a field holds a value outside its domain.
	ErrInvalidValue = errors.New("invalid value")
)

// PackageManagers lists the accepted values of package_manager.
// The empty string and "auto" both mean detection.
var PackageManagers = []string{"", "auto", "apt", "dnf", "pacman", "brew", "winget", "none"}

var (
	androidPlatformRe = regexp.MustCompile(`^android-\d+$`)
	buildRe           = regexp.MustCompile(`^\d+$`)
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error
	bad := func(field string, value any, reason string) {
		errs = append(errs, &ValueError{Field: field, Value: value, Reason: reason, Err: ErrInvalidValue})
	}

	if cfg.Version < 1 {
		errs = append(errs, ErrVersionTooLow)
	}

	if !slices.Contains(PackageManagers, cfg.PackageManager) {
		bad("package_manager", cfg.PackageManager, "expected one of "+strings.Join(PackageManagers[1:], ", "))
	}

	if cfg.JDK.Version < 8 {
		bad("jdk.version", cfg.JDK.Version, "major version must be >= 8")
	}

	if !androidPlatformRe.MatchString(cfg.Android.Platform) {
		bad("android.platform", cfg.Android.Platform, `expected "android-<api level>"`)
	}
	if _, err := semver.StrictNewVersion(cfg.Android.BuildTools); err != nil {
		bad("android.build_tools", cfg.Android.BuildTools, "expected X.Y.Z")
	}
	if !buildRe.MatchString(cfg.Android.CmdlineToolsBuild) {
		bad("android.cmdline_tools_build", cfg.Android.CmdlineToolsBuild, "expected a numeric build id")
	}

	if cfg.Flutter.Repo == "" {
		bad("flutter.repo", cfg.Flutter.Repo, "must not be empty")
	}
	if cfg.Flutter.Channel == "" {
		bad("flutter.channel", cfg.Flutter.Channel, "must not be empty")
	}

	if cfg.Backup.Retention < 1 {
		bad("backup.retention", cfg.Backup.Retention, "must be >= 1")
	}
	if cfg.Download.Attempts < 1 {
		bad("download.attempts", cfg.Download.Attempts, "must be >= 1")
	}

	for field, p := range map[string]string{
		"profile":          cfg.Profile,
		"catalog":          cfg.Catalog,
		"android.sdk_root": cfg.Android.SDKRoot,
		"flutter.dir":      cfg.Flutter.Dir,
		"sample_app.dir":   cfg.SampleApp.Dir,
	} {
		if err := validatePath(p); err != nil {
			errs = append(errs, &PathError{Field: field, Path: p, Err: err})
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// ValueError represents an out-of-domain value for a specific field.
type ValueError struct {
	Field  string
	Value  any
	Reason string
	Err    error
}

func (e *ValueError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Reason
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}
