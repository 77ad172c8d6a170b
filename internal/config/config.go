// Package config provides configuration management for provision using Viper.
package config

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/thoreinstein/provision/internal/paths"
)

// AppName is the application name used for config file naming.
const AppName = paths.AppName

// EnvPrefix is the prefix for environment variable overrides (PROVISION_JDK_VERSION, ...).
const EnvPrefix = "PROVISION"

// Config represents the top-level configuration structure.
type Config struct {
	Version        int    `mapstructure:"version" yaml:"version"`
	PackageManager string `mapstructure:"package_manager" yaml:"package_manager"`
	Profile        string `mapstructure:"profile" yaml:"profile"`
	Catalog        string `mapstructure:"catalog" yaml:"catalog"`
	AssumeYes      bool   `mapstructure:"assume_yes" yaml:"assume_yes"`
	NoInput        bool   `mapstructure:"no_input" yaml:"no_input"`

	JDK       JDK       `mapstructure:"jdk" yaml:"jdk"`
	Android   Android   `mapstructure:"android" yaml:"android"`
	Flutter   Flutter   `mapstructure:"flutter" yaml:"flutter"`
	VSCode    VSCode    `mapstructure:"vscode" yaml:"vscode"`
	Rust      Rust      `mapstructure:"rust" yaml:"rust"`
	SampleApp SampleApp `mapstructure:"sample_app" yaml:"sample_app"`
	Backup    Backup    `mapstructure:"backup" yaml:"backup"`
	Download  Download  `mapstructure:"download" yaml:"download"`
}

// JDK pins the Java toolchain.
type JDK struct {
	Version int `mapstructure:"version" yaml:"version"`
}

// Android configures the SDK root and the components installed into it.
type Android struct {
	SDKRoot           string `mapstructure:"sdk_root" yaml:"sdk_root"`
	CmdlineToolsBuild string `mapstructure:"cmdline_tools_build" yaml:"cmdline_tools_build"`
	Platform          string `mapstructure:"platform" yaml:"platform"`
	BuildTools        string `mapstructure:"build_tools" yaml:"build_tools"`
	Emulator          bool   `mapstructure:"emulator" yaml:"emulator"`
}

// Flutter configures the managed Flutter checkout.
type Flutter struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Repo    string `mapstructure:"repo" yaml:"repo"`
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// VSCode lists the editor extensions to install.
type VSCode struct {
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
}

// Rust lists cross-compilation targets and companion cargo tools.
type Rust struct {
	Targets []string `mapstructure:"targets" yaml:"targets"`
	Tools   []string `mapstructure:"tools" yaml:"tools"`
}

// SampleApp configures the optional scaffolded application.
type SampleApp struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Backup configures profile snapshots.
type Backup struct {
	Retention int `mapstructure:"retention" yaml:"retention"`
}

// Download configures direct downloads.
type Download struct {
	Attempts int `mapstructure:"attempts" yaml:"attempts"`
}

// Defaults returns the default value for every known key.
// Keys use viper's dotted notation.
func Defaults() map[string]any {
	return map[string]any{
		"version":                     1,
		"package_manager":             "",
		"profile":                     "",
		"catalog":                     "",
		"assume_yes":                  false,
		"no_input":                    false,
		"jdk.version":                 17,
		"android.sdk_root":            "",
		"android.cmdline_tools_build": "11076708",
		"android.platform":            "android-34",
		"android.build_tools":         "34.0.0",
		"android.emulator":            true,
		"flutter.dir":                 "",
		"flutter.repo":                "https://github.com/flutter/flutter.git",
		"flutter.channel":             "stable",
		"vscode.extensions": []string{
			"Dart-Code.dart-code",
			"Dart-Code.flutter",
			"rust-lang.rust-analyzer",
			"vadimcn.vscode-lldb",
		},
		"rust.targets": []string{
			"aarch64-linux-android",
			"armv7-linux-androideabi",
			"x86_64-linux-android",
			"i686-linux-android",
		},
		"rust.tools":        []string{"flutter_rust_bridge_codegen", "cargo-ndk"},
		"sample_app.dir":    "sample_app",
		"backup.retention":  5,
		"download.attempts": 3,
	}
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".")
	viper.AddConfigPath(filepath.Join(paths.ConfigHome(), AppName))

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	for k, v := range Defaults() {
		viper.SetDefault(k, v)
	}
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations and falls back to
// defaults when no file is found.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// implicit load, defaults apply
		case errors.As(err, &notFound):
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	return &cfg, nil
}

// FlutterDir returns the configured Flutter checkout, expanded against home,
// or the default location when unset.
func (c *Config) FlutterDir(home string) string {
	if c.Flutter.Dir == "" {
		return paths.FlutterDir(home)
	}
	return paths.Expand(c.Flutter.Dir, home)
}

// AndroidSDKRoot returns the configured SDK root expanded against home, or "".
func (c *Config) AndroidSDKRoot(home string) string {
	if c.Android.SDKRoot == "" {
		return ""
	}
	return paths.Expand(c.Android.SDKRoot, home)
}
