// Package cmd assembles the launchpad CLI: a cobra root command plus one
// subcommand per external entry point. Grounded on
// malbeclabs-doublezero/e2e/internal/devnet/cmd/root.go's Run()/ExitCode
// shape and its withDevnet-style flag plumbing via cmd.Root().
package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/home-lang/pantry-sub000/catalog"
	"github.com/home-lang/pantry-sub000/internal/clog"
	"github.com/home-lang/pantry-sub000/launchpad"
	"github.com/spf13/cobra"
)

// ExitCode is the process exit status Run returns.
type ExitCode int

const (
	exitCodeSuccess ExitCode = 0
	exitCodeError   ExitCode = 1
)

// Run builds and executes the root command, returning the process exit
// code; main() is expected to os.Exit(int(Run())).
func Run() ExitCode {
	rootCmd := &cobra.Command{
		Use:   "launchpad",
		Short: "Cross-platform developer environment manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().String("catalog", "", "path to a catalog snapshot JSON file (defaults to the bundled catalog)")

	rootCmd.AddCommand(
		newDevCmd(),
		newDevShellcodeCmd(),
		newInstallCmd(),
		newUpdateCmd(),
		newUpgradeCmd(),
		newCleanCmd(),
		newServicesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// loggerFor builds a clog.New logger honoring the --verbose persistent
// flag, the way withDevnet reads --verbose back off cmd.Root().
func loggerFor(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	return clog.New(clog.Options{Verbose: verbose})
}

// loadCatalog opens the --catalog snapshot if given, else the bundled
// default path under the launchpad data directory.
func loadCatalog(cmd *cobra.Command, cfg launchpad.Config) (catalog.Catalog, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("catalog")
	if path == "" {
		path = filepath.Join(cfg.DataDir, "catalog.json")
	}
	return catalog.LoadFileCatalog(path)
}

// projectPathOrCwd resolves the project root argument, defaulting to the
// current working directory.
func projectPathOrCwd(arg string) (string, error) {
	if arg != "" {
		return filepath.Abs(arg)
	}
	return os.Getwd()
}
