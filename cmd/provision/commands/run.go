package commands

import (
	"fmt"
	"os"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/provision"
)

var (
	runYes            bool
	runNoInput        bool
	runOnly           []string
	runSkip           []string
	runPick           bool
	runPackageManager string
	runJSON           bool
	runReport         string
)

func init() {
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false,
		"answer yes to every prompt")
	runCmd.Flags().BoolVar(&runNoInput, "no-input", false,
		"never read stdin; prompts take their default")
	runCmd.Flags().StringSliceVar(&runOnly, "only", nil,
		"run only these steps (comma-separated ids)")
	runCmd.Flags().StringSliceVar(&runSkip, "skip", nil,
		"skip these steps (comma-separated ids)")
	runCmd.Flags().BoolVar(&runPick, "pick", false,
		"choose a single step interactively")
	runCmd.Flags().StringVar(&runPackageManager, "package-manager", "",
		"force a package manager (apt, dnf, pacman, brew, winget) or none")
	runCmd.Flags().BoolVar(&runJSON, "json", false,
		"print the report as JSON on stdout")
	runCmd.Flags().StringVar(&runReport, "report", "",
		"also write the report to FILE (.json, .yaml)")
	runCmd.MarkFlagsMutuallyExclusive("pick", "only")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision this machine",
	Long: `Run every provisioning step in order. Each step checks the host first
and only installs or configures what is missing.

Exit codes:
  0 - Completed (warnings are reported but do not fail the run)
  1 - No privilege elevation available, or invalid usage
  2 - A required download is unavailable`,
	Example: `  # Provision with prompts
  provision run

  # Unattended, accepting optional tools
  provision run --yes

  # Only the Rust toolchain and cargo tools
  provision run --only rust-toolchain,cargo-tools

  # Keep a machine-readable record
  provision run --no-input --report provision-report.json

  See Also: provision plan, provision doctor`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}

	only := runOnly
	if runPick {
		id, err := pickStep()
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
		only = []string{id}
	}

	deps, err := hostDeps(cfg, promptMode(cfg, runYes, runNoInput))
	if err != nil {
		return err
	}
	p, err := provision.New(deps, provision.Options{
		Only:           only,
		Skip:           runSkip,
		PackageManager: runPackageManager,
	})
	if err != nil {
		return errors.NewUserError(err, "Run 'provision plan' to list the step ids")
	}

	report, runErr := p.Run(cmd.Context())
	if err := emitReport(cmd, report, runJSON, runReport); err != nil {
		return err
	}
	return runErr
}

// emitReport prints report and, when path is set, writes it to disk.
func emitReport(cmd *cobra.Command, report *provision.Report, asJSON bool, path string) error {
	if path != "" {
		if err := report.Write(afero.NewOsFs(), path); err != nil {
			return errors.NewUserError(err, "check that the report directory exists")
		}
		logging.FromContext(cmd.Context()).Info("report written", "path", path)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printSummary(cmd.OutOrStdout(), report)
	return nil
}

// pickStep opens a fuzzy finder over the selectable steps. An aborted
// picker returns "".
func pickStep() (string, error) {
	if !logging.IsTTY(os.Stdin) {
		return "", errors.NewUserError(errors.New("--pick needs an interactive terminal"), "use --only <step> instead")
	}

	steps := provision.Steps()
	idx, err := fuzzyfinder.Find(
		steps,
		func(i int) string { return steps[i].ID() },
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return fmt.Sprintf("%s\n\nid: %s", steps[i].Title(), steps[i].ID())
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", errors.Wrap(err, "step picker failed")
	}
	return steps[idx].ID(), nil
}
