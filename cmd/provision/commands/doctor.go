package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/doctor"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/provision"
)

var (
	doctorJSON    bool
	doctorQuiet   bool
	doctorVerbose bool
	doctorStrict  bool
	doctorFix     bool
)

// errDoctorWarnings is a sentinel error for exit code 1 under --strict.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is a sentinel error for exit code 2 under --strict.
var errDoctorErrors = errors.New("errors found")

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorQuiet, "quiet", false,
		"suppress output, exit code only")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false,
		"show detailed check-by-check output")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false,
		"exit 1 on warnings and 2 on errors")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"repair fixable issues (profile permissions)")
	doctorCmd.MarkFlagsMutuallyExclusive("json", "quiet", "verbose")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the provisioned toolchains",
	Long: `Run the diagnostic checks without changing anything: toolchain
versions, flutter doctor, duplicate PATH entries, persisted environment
variables and the shell profile.

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --quiet     No output, exit code only
  --json      Machine-readable JSON output

Findings are advisory and exit 0. With --strict:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Check the environment
  provision doctor

  # Fail CI on any finding
  provision doctor --strict --quiet

  See Also: provision run`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	deps, err := hostDeps(cfg, prompt.ModeDefaults)
	if err != nil {
		return err
	}

	checks := provision.Doctor(provision.NewSession(deps, ""))
	report := checks.Run(cmd.Context())

	out := cmd.OutOrStdout()
	if doctorFix {
		fixes := checks.Fix()
		if !doctorQuiet && !doctorJSON {
			printFixes(out, fixes)
		}
		if len(fixes) > 0 {
			report = checks.Run(cmd.Context())
		}
	}

	if err := outputDoctorReport(out, report); err != nil {
		return err
	}
	return doctorExit(report, doctorStrict)
}

func doctorExit(report *doctor.Report, strict bool) error {
	if !strict {
		return nil
	}
	if report.HasErrors() {
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func outputDoctorReport(w io.Writer, report *doctor.Report) error {
	switch {
	case doctorQuiet:
		return nil
	case doctorJSON:
		return writeJSON(w, report)
	}
	outputDoctorText(w, report, doctorVerbose)
	return nil
}

func outputDoctorText(w io.Writer, report *doctor.Report, showAll bool) {
	hasOutput := false
	for _, result := range report.Results {
		if !showAll && result.Status < doctor.SeverityWarning {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)
		if showAll && result.Output != "" {
			fmt.Fprintf(w, "  %s\n", result.Output)
		}
		if result.FixHint != "" && result.Status >= doctor.SeverityWarning {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func printFixes(w io.Writer, fixes []doctor.FixResult) {
	for _, f := range fixes {
		switch {
		case f.Fixed:
			fmt.Fprintf(w, "fixed %s: %s\n", f.Path, f.Description)
		case f.Error != nil:
			fmt.Fprintf(w, "could not fix %s: %v\n", f.Path, f.Error)
		default:
			fmt.Fprintf(w, "skipped %s: %s\n", f.Path, f.Description)
		}
	}
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return "✓"
	case doctor.SeverityInfo:
		return "ℹ"
	case doctor.SeverityWarning:
		return "⚠"
	case doctor.SeverityError:
		return "✗"
	default:
		return "?"
	}
}
