package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/provision/internal/config"
	"github.com/thoreinstein/provision/internal/editor"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/paths"
	"github.com/thoreinstein/provision/pkg/fileutil"
)

// listKeys take comma-separated values on `config set`.
var listKeys = []string{"vscode.extensions", "rust.targets", "rust.tools"}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage provision configuration",
	Long: `Manage provision configuration stored in config.yaml, read from the
working directory or the user config directory. Every key can also be
set with a PROVISION_ environment variable (PROVISION_JDK_VERSION=21).

Without a subcommand, lists all configuration values.`,
	Example: `  # List all configuration
  provision config

  # Pin a different JDK
  provision config set jdk.version 21

  # Fewer Rust targets
  provision config set rust.targets aarch64-linux-android,x86_64-linux-android

See Also: provision catalog`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a single configuration value by key.

Supports dot notation for nested keys. Array values are printed one per line.`,
	Example: `  provision config get android.platform

See Also: provision config set, provision config list`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write the configuration file.

List keys (vscode.extensions, rust.targets, rust.tools) take
comma-separated values. The result is validated before it is written.`,
	Example: `  provision config set package_manager dnf

See Also: provision config get, provision config list`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long:  `List all configuration values in YAML format.`,
	RunE:  runConfigList,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Long:  `Print the file config set writes to.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in an editor",
	Long: `Open config.yaml in $EDITOR (or $VISUAL, nano, vi). The file is
created with the current values first if it does not exist, and validated
after the editor exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConfigEdit(cmd, afero.NewOsFs(), editor.New(), configPath())
	},
}

type fileOpener interface {
	Open(ctx context.Context, path string) error
}

func runConfigEdit(cmd *cobra.Command, fs afero.Fs, ed fileOpener, path string) error {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return errors.Wrap(err, "checking config file")
	}
	if !exists {
		if err := writeConfig(fs, path); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Location: %s\n", path)
	if err := ed.Open(cmd.Context(), path); err != nil {
		return errors.NewSystemError(err, "set $EDITOR to an installed editor")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return errors.NewConfigError(err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return errors.NewConfigError(errors.Join(errs...))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	return printConfigValue(cmd.OutOrStdout(), args[0])
}

func printConfigValue(w io.Writer, key string) error {
	if !viper.IsSet(key) {
		return errors.NewUserError(errors.Newf("unknown key %q", key), "Run: provision config list")
	}

	switch v := viper.Get(key).(type) {
	case []any:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case []string:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case map[string]any:
		data, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "marshaling config")
		}
		fmt.Fprint(w, string(data))
	default:
		fmt.Fprintln(w, viper.GetString(key))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if _, known := config.Defaults()[key]; !known {
		return errors.NewUserError(errors.Newf("unknown key %q", key), "Run: provision config list")
	}

	value, err := parseConfigValue(key, raw)
	if err != nil {
		return errors.NewUserError(err, "check the value type in provision config list")
	}
	viper.Set(key, value)

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return errors.NewConfigError(errors.Wrap(err, "unmarshaling config"))
	}
	if errs := config.Validate(&cfg); len(errs) > 0 {
		return errors.NewConfigError(errors.Join(errs...))
	}

	if err := writeConfig(afero.NewOsFs(), configPath()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, value)
	return nil
}

// parseConfigValue converts raw to the type of key's default.
func parseConfigValue(key, raw string) (any, error) {
	if slices.Contains(listKeys, key) {
		return parseList(raw), nil
	}
	switch config.Defaults()[key].(type) {
	case int:
		n, err := strconv.Atoi(raw)
		return n, errors.Wrapf(err, "%s expects an integer", key)
	case bool:
		b, err := strconv.ParseBool(raw)
		return b, errors.Wrapf(err, "%s expects true or false", key)
	default:
		return raw, nil
	}
}

// parseList splits a comma-separated string, dropping empty elements.
func parseList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// configPath returns the file in use, or the user config file.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return filepath.Join(paths.ConfigDir(), "config.yaml")
}

// writeConfig writes every known key to path.
func writeConfig(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return errors.Wrap(fileutil.AtomicWriteYAML(fs, path, viper.AllSettings()), "writing config file")
}
