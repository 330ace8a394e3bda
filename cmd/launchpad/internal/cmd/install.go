package cmd

import (
	"path/filepath"

	"github.com/home-lang/pantry-sub000/envhash"
	"github.com/home-lang/pantry-sub000/launchpad"
	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <spec>...",
		Short: "Install one or more package specifiers directly into a prefix",
		Args:  cobra.MinimumNArgs(1),
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
			for _, spec := range args {
				result, err := launchpad.Install(cmd.Context(), cfg, envRoot, spec, cat)
				if err != nil {
					logger.Error("install failed", "spec", spec, "error", err)
					continue
				}
				for _, pkg := range result.Installed {
					logger.Info("installed", "domain", pkg.Domain, "version", pkg.Version)
				}
				for _, w := range result.Warnings {
					logger.Warn(w.Error())
				}
			}
			return nil
		},
	}
	return cmd
}
