package cmd

import (
	"path/filepath"

	"github.com/home-lang/pantry-sub000/envhash"
	"github.com/home-lang/pantry-sub000/launchpad"
	"github.com/spf13/cobra"
)

// newUpdateCmd implements `update|up <names>... [--latest] [--dry-run]`
// — package updates. `upgrade` is not an alias here: it is the separate
// self-upgrade command (newUpgradeCmd) and takes no names.
func newUpdateCmd() *cobra.Command {
	var latest, dryRun bool

	cmd := &cobra.Command{
		Use:     "update <names>...",
		Aliases: []string{"up"},
		Short:   "Update the named dependencies to the latest permitted version",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := launchpad.Config{}.ResolveDefaults()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cmd, cfg)
			if err != nil {
				return err
			}
			projectPath, err := projectPathOrCwd("")
			if err != nil {
				return err
			}
			envID, err := envhash.ID(projectPath)
			if err != nil {
				return err
			}
			envRoot := filepath.Join(cfg.EnvsRoot(), envID)

			logger := loggerFor(cmd)
			for _, name := range args {
				spec := name
				if latest {
					spec = name + "@latest"
				}
				if dryRun {
					logger.Info("would update", "spec", spec)
					continue
				}
				result, err := launchpad.Install(cmd.Context(), cfg, envRoot, spec, cat)
				if err != nil {
					logger.Error("update failed", "spec", spec, "error", err)
					continue
				}
				for _, pkg := range result.Installed {
					logger.Info("updated", "domain", pkg.Domain, "version", pkg.Version)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "ignore any pinned constraint and take the newest available version")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print what would be updated without installing")
	return cmd
}
