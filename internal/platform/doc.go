// Package platform detects facts about the host being provisioned.
//
// A [Host] records the OS family, architecture, Linux distribution (from
// os-release), login shell, home directory and whether the process runs as
// root. Detection never runs external programs; everything comes from the
// Go runtime, the environment and the filesystem, so tests drive it with
// an in-memory afero filesystem:
//
//	fs := afero.NewMemMapFs()
//	afero.WriteFile(fs, "/etc/os-release", []byte("ID=ubuntu\n"), 0o644)
//	host, err := platform.NewDetector(platform.WithFs(fs)).Detect()
package platform
