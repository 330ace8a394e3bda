package cmd

import (
	"fmt"

	"github.com/home-lang/pantry-sub000/launchpad"
	"github.com/spf13/cobra"
)

// newCleanCmd implements `clean [--keep-global] [--dry-run] [--force]`,
// removing a project's installed packages.
func newCleanCmd() *cobra.Command {
	var keepGlobal, dryRun, force bool

	cmd := &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove a project's installed packages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			projectPath, err := projectPathOrCwd(arg)
			if err != nil {
				return err
			}

			cfg, err := launchpad.Config{}.ResolveDefaults()
			if err != nil {
				return err
			}

			plan, err := launchpad.Clean(cmd.Context(), cfg, launchpad.CleanOptions{
				ProjectPath: projectPath,
				KeepGlobal:  keepGlobal,
				DryRun:      dryRun,
				Force:       force,
			})
			if err != nil {
				return err
			}

			logger := loggerFor(cmd)
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, label := range plan.Removed {
				logger.Info(verb, "package", label)
			}
			for _, label := range plan.Kept {
				logger.Info("kept (global)", "package", label)
			}
			if len(plan.Removed) == 0 && len(plan.Kept) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepGlobal, "keep-global", false, "preserve packages declared global in a project or dotfiles manifest")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print what would be removed without removing it")
	cmd.Flags().BoolVar(&force, "force", false, "continue past individual removal errors")
	return cmd
}
