package commands

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/provision"
)

var (
	planJSON bool
	planOnly []string
	planSkip []string
)

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false,
		"print the plan as JSON on stdout")
	planCmd.Flags().StringSliceVar(&planOnly, "only", nil,
		"check only these steps (comma-separated ids)")
	planCmd.Flags().StringSliceVar(&planSkip, "skip", nil,
		"skip these steps (comma-separated ids)")
	rootCmd.AddCommand(planCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what run would change",
	Long: `Check every step without changing the host and report which ones
would install or configure something.

Step ids, in order:
  host, package-manager, elevation, system-packages, jdk, android-sdk,
  flutter-sdk, vscode, vscode-extensions, rust-toolchain, cargo-tools,
  commit-helper, sample-app, diagnostics`,
	Example: `  # Preview a run
  provision plan

  # Machine-readable
  provision plan --json

  See Also: provision run`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	deps, err := hostDeps(cfg, prompt.ModeDefaults)
	if err != nil {
		return err
	}
	p, err := provision.New(deps, provision.Options{Only: planOnly, Skip: planSkip})
	if err != nil {
		return errors.NewUserError(err, "Run 'provision plan --help' to list the step ids")
	}

	report, planErr := p.Plan(cmd.Context())
	if err := emitReport(cmd, report, planJSON, ""); err != nil {
		return err
	}
	return planErr
}
