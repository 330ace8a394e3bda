package cmd

import (
	"github.com/home-lang/pantry-sub000/upgrade"
	"github.com/spf13/cobra"
)

// Version is the running binary's version, set via -ldflags "-X
// .../cmd.Version=..." at release build time; "dev" for local builds.
var Version = "dev"

// newUpgradeCmd implements self-upgrade: `upgrade [--release] [--target]
// [--force] [--verbose] [--dry-run]`, distinct from `update <names>...`
// (newUpdateCmd), which updates project dependencies rather than the
// launchpad binary itself.
func newUpgradeCmd() *cobra.Command {
	var release, target string
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the launchpad binary itself to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
			logger := loggerFor(cmd)

			result, err := upgrade.Run(cmd.Context(), upgrade.Options{
				CurrentVersion: Version,
				Release:        release,
				Target:         target,
				Force:          force,
				Verbose:        verbose,
				DryRun:         dryRun,
				Runner:         execRunner{log: logger, verbose: verbose},
			})
			if err != nil {
				return err
			}

			if dryRun || result.AlreadyCurrent {
				upgrade.PrintPlan(cmd.OutOrStdout(), result)
				return nil
			}
			logger.Info("upgraded", "version", result.LatestTag)
			return nil
		},
	}

	cmd.Flags().StringVar(&release, "release", "", "install a specific release tag instead of the latest")
	cmd.Flags().StringVar(&target, "target", "", "install prefix override")
	cmd.Flags().BoolVar(&force, "force", false, "reinstall even if already current")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the planned upgrade without running it")
	return cmd
}
