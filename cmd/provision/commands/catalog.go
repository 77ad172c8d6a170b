package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/pkgmgr"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

var (
	catalogJSON bool
	catalogYAML bool
)

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false,
		"output the catalog as JSON")
	catalogCmd.Flags().BoolVar(&catalogYAML, "yaml", false,
		"output the catalog as YAML, usable as a catalog override file")
	catalogCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the declared tool catalog",
	Long: `Print every tool provision manages and, for this host, the installer
and package identifier it would use.

A catalog file set with the "catalog" configuration key (.yaml, .yml or
.toml) overrides entries by id and appends new ones.`,
	Example: `  # Table for this host
  provision catalog

  # Start an override file
  provision catalog --yaml > ~/.config/provision/catalog.yaml

  See Also: provision config set catalog`,
	RunE: runCatalog,
}

// catalogRow is one resolved requirement.
type catalogRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Installer string `json:"installer"`
	Package   string `json:"package,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(afero.NewOsFs(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if catalogYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		return errors.Wrap(enc.Encode(cat), "encoding YAML")
	}

	manager := pkgmgr.None
	if host, err := platform.Detect(); err == nil {
		if m, err := pkgmgr.DefaultRegistry().Detect(host, shell.NewExecRunner(), cfg.PackageManager); err == nil && m != nil {
			manager = m.Name()
		}
	}

	rows := resolveCatalog(cat, manager)
	if catalogJSON {
		return writeJSON(out, rows)
	}
	printCatalog(out, rows)
	return nil
}

// resolveCatalog maps each requirement to the installer that handles its
// kind on a host whose package manager is manager.
func resolveCatalog(cat *catalog.Catalog, manager string) []catalogRow {
	rows := make([]catalogRow, 0, len(cat.Requirements))
	for _, r := range cat.Requirements {
		installer := installerFor(r, manager)
		pkg, _ := r.Package(installer)
		rows = append(rows, catalogRow{
			ID:        r.ID,
			Name:      r.Name,
			Kind:      string(r.Kind),
			Installer: installer,
			Package:   pkg,
			Optional:  r.Optional,
		})
	}
	return rows
}

func installerFor(r catalog.Requirement, manager string) string {
	switch r.Kind {
	case catalog.KindAndroid:
		if r.ID == "cmdline-tools" {
			return "download"
		}
		return catalog.InstallerSDKManager
	case catalog.KindFlutter:
		return "git"
	case catalog.KindExtension:
		return catalog.InstallerCode
	case catalog.KindTarget:
		return catalog.InstallerRustup
	case catalog.KindCargo, catalog.KindOptional:
		return catalog.InstallerCargo
	case catalog.KindRust:
		if _, ok := r.Package(manager); ok {
			return manager
		}
		return "rustup-init"
	default:
		return manager
	}
}

func printCatalog(w io.Writer, rows []catalogRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tINSTALLER\tPACKAGE")
	for _, r := range rows {
		pkg := r.Package
		if pkg == "" {
			pkg = "-"
		}
		if r.Optional {
			pkg += " (optional)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.Installer, pkg)
	}
	_ = tw.Flush()
}
