// Package provision brings a host to the declared developer environment.
//
// A [Provisioner] runs a fixed, ordered list of [Step] values against a
// [Session]. Each step first checks whether its requirement is already
// satisfied and only then applies changes, so a second run on a converged
// host performs no installs and writes no files.
//
// Only two conditions abort a run: no privilege elevation for a package
// manager or environment store that needs it ([errors.ErrNoElevation]) and
// a download of the Android command-line tools or rustup-init that fails
// with no existing installation ([errors.ErrDownloadUnavailable]). Every
// other failure becomes a warning result and the run continues.
//
// [errors.ErrNoElevation]: github.com/thoreinstein/provision/internal/errors
// [errors.ErrDownloadUnavailable]: github.com/thoreinstein/provision/internal/errors
package provision
