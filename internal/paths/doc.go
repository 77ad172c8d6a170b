// Package paths provides cross-platform path resolution for the provisioner.
//
// It wraps github.com/adrg/xdg for the tool's own config, cache and state
// directories and knows the conventional install roots of the toolchains
// the provisioner manages:
//
//	| Item             | linux              | darwin                  | windows                      |
//	|------------------|--------------------|-------------------------|------------------------------|
//	| Android SDK      | ~/Android/Sdk      | ~/Library/Android/sdk   | %LOCALAPPDATA%\Android\Sdk   |
//	| Flutter checkout | ~/development/flutter (all hosts)                                         |
//	| Cargo binaries   | $CARGO_HOME/bin or ~/.cargo/bin (all hosts)                                |
//
// Functions that need the home directory take it as a parameter so callers
// and tests control resolution.
package paths
