package cmd

import (
	"fmt"

	"github.com/home-lang/pantry-sub000/envbuild"
	"github.com/home-lang/pantry-sub000/launchpad"
	"github.com/spf13/cobra"
)

func newDevCmd() *cobra.Command {
	var shell, dryRun bool

	cmd := &cobra.Command{
		Use:   "dev [path]",
		Short: "Install a project's dependencies and emit the shell activation snippet",
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
			cat, err := loadCatalog(cmd, cfg)
			if err != nil {
				return err
			}

			result, err := launchpad.Dev(cmd.Context(), cfg, launchpad.DevOptions{
				ProjectPath: projectPath,
				Cat:         cat,
				DryRun:      dryRun,
			})
			if err != nil {
				return err
			}

			if dryRun {
				logger := loggerFor(cmd)
				if len(result.Installed) == 0 {
					logger.Info("would install no new packages")
				}
				for _, w := range result.Warnings {
					logger.Warn(w)
				}
				return nil
			}

			if shell {
				fmt.Fprint(cmd.OutOrStdout(), result.ActivationSnippet)
				return nil
			}

			logger := loggerFor(cmd)
			for _, pkg := range result.Installed {
				logger.Info("installed", "domain", pkg.Domain, "version", pkg.Version)
			}
			for _, w := range result.Warnings {
				logger.Warn(w)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.ActivationSnippet)
			return nil
		},
	}

	cmd.Flags().BoolVar(&shell, "shell", false, "print only the activation snippet, for `eval`")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "resolve dependencies without installing or activating")
	return cmd
}

func newDevShellcodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dev:shellcode",
		Short: "Print the shell integration preamble for .bashrc/.zshrc",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), envbuild.ShellIntegrationPreamble())
			return nil
		},
	}
}
