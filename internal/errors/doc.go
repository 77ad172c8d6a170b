// Package errors provides error handling conventions for the provision CLI.
//
// This package defines sentinel errors for the provisioner's failure
// conditions, an ExitError type for CLI exit code handling, and thin
// forwards to github.com/cockroachdb/errors for wrapping.
//
// # Fatal Conditions
//
// Only two conditions abort a provisioning run:
//
//   - [ErrNoElevation]: a package install needs privileges and neither root,
//     sudo, doas nor an administrator token is available.
//   - [ErrDownloadUnavailable]: a direct-download tool could not be fetched and
//     no pre-existing installation was found.
//
// Every other failure is reported as a step warning and the run continues.
//
// # Exit Codes
//
//   - ExitSuccess (0): completed, possibly with warnings
//   - ExitUser (1): user-related error (configuration, missing elevation)
//   - ExitSystem (2): system-related error (I/O, network, downloads)
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional suggestion:
//
//	err := errors.NewUserError(errors.ErrNoElevation, "Re-run as root or install sudo")
//	os.Exit(errors.ExitCode(err))
package errors
