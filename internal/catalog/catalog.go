// Package catalog declares the tools the provisioner installs.
//
// A [Requirement] names a tool, how to probe for it, and the identifier
// each installer (system package manager, sdkmanager, code, rustup, cargo)
// uses for it. The default catalog is built from configuration and can be
// extended or overridden by a YAML or TOML file.
package catalog

import (
	"slices"
	"strconv"
	"strings"
)

// Kind groups requirements by the step that installs them.
type Kind string

const (
	KindSystem    Kind = "system"
	KindJDK       Kind = "jdk"
	KindAndroid   Kind = "android"
	KindFlutter   Kind = "flutter"
	KindIDE       Kind = "ide"
	KindExtension Kind = "extension"
	KindRust      Kind = "rust"
	KindTarget    Kind = "target"
	KindCargo     Kind = "cargo"
	KindOptional  Kind = "optional"
)

// Installer keys used in Requirement.Packages besides package-manager names.
const (
	InstallerSDKManager = "sdkmanager"
	InstallerCode       = "code"
	InstallerRustup     = "rustup"
	InstallerCargo      = "cargo"
)

// Requirement is a declared tool.
type Requirement struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	Name string `json:"name" yaml:"name" toml:"name"`
	Kind Kind   `json:"kind" yaml:"kind" toml:"kind"`

	// Probe is a binary whose presence on the search path satisfies the
	// requirement. Empty means the installer's own query decides.
	Probe string `json:"probe,omitempty" yaml:"probe,omitempty" toml:"probe,omitempty"`

	// Packages maps an installer (apt, brew, sdkmanager, cargo, ...) to the
	// identifier it uses. A missing key means the installer cannot provide it.
	Packages map[string]string `json:"packages,omitempty" yaml:"packages,omitempty" toml:"packages,omitempty"`

	// MinVersion is a semver constraint checked against VersionArgs output.
	MinVersion string `json:"min_version,omitempty" yaml:"min_version,omitempty" toml:"min_version,omitempty"`

	// VersionArgs is the self-report command, e.g. ["javac", "-version"].
	VersionArgs []string `json:"version_args,omitempty" yaml:"version_args,omitempty" toml:"version_args,omitempty"`

	// Optional requirements are installed only after confirmation.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
}

// Package returns the identifier installer uses for r.
func (r Requirement) Package(installer string) (string, bool) {
	p, ok := r.Packages[installer]
	return p, ok && p != ""
}

// Catalog is an ordered set of requirements.
type Catalog struct {
	Requirements []Requirement `json:"requirements" yaml:"requirements" toml:"requirements"`
}

// Get returns the requirement with id.
func (c *Catalog) Get(id string) (Requirement, bool) {
	for _, r := range c.Requirements {
		if r.ID == id {
			return r, true
		}
	}
	return Requirement{}, false
}

// ByKind returns the requirements of kind in declaration order.
func (c *Catalog) ByKind(kind Kind) []Requirement {
	var out []Requirement
	for _, r := range c.Requirements {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Packages returns the identifiers installer uses for every requirement
// of kind, skipping requirements it cannot provide. The second result
// lists the names of the skipped requirements.
func (c *Catalog) Packages(kind Kind, installer string) (pkgs, unavailable []string) {
	for _, r := range c.ByKind(kind) {
		if p, ok := r.Package(installer); ok {
			pkgs = append(pkgs, p)
		} else {
			unavailable = append(unavailable, r.Name)
		}
	}
	return pkgs, unavailable
}

// Merge overlays other onto c: requirements with a known ID replace the
// existing entry in place, new IDs are appended.
func (c *Catalog) Merge(other *Catalog) {
	for _, r := range other.Requirements {
		i := slices.IndexFunc(c.Requirements, func(e Requirement) bool { return e.ID == r.ID })
		if i >= 0 {
			c.Requirements[i] = r
		} else {
			c.Requirements = append(c.Requirements, r)
		}
	}
}

// Options parameterise the default catalog.
type Options struct {
	JDKVersion      int
	AndroidPlatform string
	BuildTools      string
	Emulator        bool
	Extensions      []string
	Targets         []string
	CargoTools      []string
}

func system(id, name string, pkgs map[string]string) Requirement {
	return Requirement{ID: id, Name: name, Kind: KindSystem, Packages: pkgs}
}

// Default returns the declared catalog.
func Default(o Options) *Catalog {
	v := strconv.Itoa(o.JDKVersion)

	reqs := []Requirement{
		system("git", "Git", map[string]string{"apt": "git", "dnf": "git", "pacman": "git", "brew": "git", "winget": "Git.Git"}),
		system("curl", "curl", map[string]string{"apt": "curl", "dnf": "curl", "pacman": "curl", "brew": "curl"}),
		system("unzip", "unzip", map[string]string{"apt": "unzip", "dnf": "unzip", "pacman": "unzip", "winget": "7zip.7zip"}),
		system("xz", "xz", map[string]string{"apt": "xz-utils", "dnf": "xz", "pacman": "xz", "brew": "xz"}),
		system("zip", "zip", map[string]string{"apt": "zip", "dnf": "zip", "pacman": "zip"}),
		system("glu", "OpenGL utility library", map[string]string{"apt": "libglu1-mesa", "dnf": "mesa-libGLU", "pacman": "glu"}),
		system("clang", "Clang", map[string]string{"apt": "clang", "dnf": "clang", "pacman": "clang", "winget": "LLVM.LLVM"}),
		system("cmake", "CMake", map[string]string{"apt": "cmake", "dnf": "cmake", "pacman": "cmake", "brew": "cmake", "winget": "Kitware.CMake"}),
		system("ninja", "Ninja", map[string]string{"apt": "ninja-build", "dnf": "ninja-build", "pacman": "ninja", "brew": "ninja", "winget": "Ninja-build.Ninja"}),
		system("pkg-config", "pkg-config", map[string]string{"apt": "pkg-config", "dnf": "pkgconf-pkg-config", "pacman": "pkgconf", "brew": "pkg-config"}),
		system("gtk3", "GTK 3 development headers", map[string]string{"apt": "libgtk-3-dev", "dnf": "gtk3-devel", "pacman": "gtk3"}),
		system("cc", "C/C++ toolchain", map[string]string{"apt": "build-essential", "dnf": "gcc-c++", "pacman": "base-devel", "winget": "Microsoft.VisualStudio.2022.BuildTools"}),
		{
			ID:   "jdk",
			Name: "JDK " + v,
			Kind: KindJDK,
			Packages: map[string]string{
				"apt":    "openjdk-" + v + "-jdk",
				"dnf":    "java-" + v + "-openjdk-devel",
				"pacman": "jdk" + v + "-openjdk",
				"brew":   "openjdk@" + v,
				"winget": "Microsoft.OpenJDK." + v,
			},
			Probe:       "javac",
			MinVersion:  ">= " + v,
			VersionArgs: []string{"javac", "-version"},
		},
		{ID: "cmdline-tools", Name: "Android command-line tools", Kind: KindAndroid, Probe: "sdkmanager",
			Packages: map[string]string{InstallerSDKManager: "cmdline-tools;latest"}, VersionArgs: []string{"sdkmanager", "--version"}},
		{ID: "platform-tools", Name: "Android platform tools", Kind: KindAndroid,
			Packages: map[string]string{InstallerSDKManager: "platform-tools"}},
		{ID: "android-platform", Name: "Android platform " + o.AndroidPlatform, Kind: KindAndroid,
			Packages: map[string]string{InstallerSDKManager: "platforms;" + o.AndroidPlatform}},
		{ID: "build-tools", Name: "Android build tools " + o.BuildTools, Kind: KindAndroid,
			Packages: map[string]string{InstallerSDKManager: "build-tools;" + o.BuildTools}},
	}
	if o.Emulator {
		reqs = append(reqs, Requirement{ID: "emulator", Name: "Android emulator", Kind: KindAndroid,
			Packages: map[string]string{InstallerSDKManager: "emulator"}})
	}

	reqs = append(reqs,
		Requirement{ID: "flutter", Name: "Flutter SDK", Kind: KindFlutter, Probe: "flutter",
			VersionArgs: []string{"flutter", "--version"}},
		Requirement{ID: "vscode", Name: "Visual Studio Code", Kind: KindIDE, Probe: "code",
			Packages: map[string]string{
				"apt": "code", "dnf": "code", "pacman": "code",
				"brew": "cask:visual-studio-code", "winget": "Microsoft.VisualStudioCode",
			}},
	)
	for _, ext := range o.Extensions {
		reqs = append(reqs, Requirement{ID: "ext:" + strings.ToLower(ext), Name: ext, Kind: KindExtension,
			Packages: map[string]string{InstallerCode: ext}})
	}

	reqs = append(reqs, Requirement{ID: "rustup", Name: "rustup", Kind: KindRust, Probe: "rustup",
		Packages:    map[string]string{"winget": "Rustlang.Rustup"},
		VersionArgs: []string{"rustc", "--version"}})
	for _, tgt := range o.Targets {
		reqs = append(reqs, Requirement{ID: "target:" + tgt, Name: tgt, Kind: KindTarget,
			Packages: map[string]string{InstallerRustup: tgt}})
	}
	for _, tool := range o.CargoTools {
		reqs = append(reqs, Requirement{ID: tool, Name: tool, Kind: KindCargo, Probe: cargoBinary(tool),
			Packages: map[string]string{InstallerCargo: tool}})
	}

	reqs = append(reqs, Requirement{ID: "cocogitto", Name: "cocogitto", Kind: KindOptional, Probe: "cog",
		Packages: map[string]string{InstallerCargo: "cocogitto"}, Optional: true})

	return &Catalog{Requirements: reqs}
}

// cargoBinary maps a crate to the binary it installs when they differ.
func cargoBinary(crate string) string {
	switch crate {
	case "cocogitto":
		return "cog"
	default:
		return crate
	}
}
