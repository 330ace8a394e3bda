package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/home-lang/pantry-sub000/envhash"
	"github.com/home-lang/pantry-sub000/launchpad"
	"github.com/home-lang/pantry-sub000/service"
	"github.com/spf13/cobra"
)

// newServicesCmd implements `services <start|stop|restart|enable|disable|
// status|list> <name>`, wiring launchpad.NewServiceSupervisor against the
// current project's environment root.
func newServicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Supervise long-running services (databases, caches, proxies)",
	}

	cmd.AddCommand(
		newServicesActionCmd("start", "Start a service"),
		newServicesActionCmd("stop", "Stop a service"),
		newServicesActionCmd("restart", "Restart a service"),
		newServicesActionCmd("enable", "Enable a service to auto-start"),
		newServicesActionCmd("disable", "Disable a service's auto-start"),
		newServicesStatusCmd(),
		newServicesListCmd(),
	)
	return cmd
}

// supervisorForCmd resolves the launchpad config and the current project's
// environment ID; the caller builds the Supervisor from them.
func supervisorForCmd(cmd *cobra.Command) (*launchpad.Config, string, error) {
	cfg, err := launchpad.Config{}.ResolveDefaults()
	if err != nil {
		return nil, "", err
	}
	projectPath, err := projectPathOrCwd("")
	if err != nil {
		return nil, "", err
	}
	envID, err := envhash.ID(projectPath)
	if err != nil {
		return nil, "", err
	}
	return &cfg, envID, nil
}

func newServicesActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, envID, err := supervisorForCmd(cmd)
			if err != nil {
				return err
			}
			verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
			logger := loggerFor(cmd)
			envRoot := filepath.Join(cfg.EnvsRoot(), envID)
			sup, err := launchpad.NewServiceSupervisor(envRoot, serviceRunner{execRunner{log: logger, verbose: verbose}}, false)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			switch action {
			case "start":
				err = sup.Start(ctx, name)
			case "stop":
				err = sup.Stop(ctx, name)
			case "restart":
				err = sup.Restart(ctx, name)
			case "enable":
				err = sup.Enable(name)
			case "disable":
				err = sup.Disable(name)
			}
			if err != nil {
				return err
			}
			logger.Info(action+"ed", "service", name)
			return nil
		},
	}
}

func newServicesStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Report a service's current status and run its health check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, envID, err := supervisorForCmd(cmd)
			if err != nil {
				return err
			}
			verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
			logger := loggerFor(cmd)
			envRoot := filepath.Join(cfg.EnvsRoot(), envID)
			sup, err := launchpad.NewServiceSupervisor(envRoot, serviceRunner{execRunner{log: logger, verbose: verbose}}, false)
			if err != nil {
				return err
			}

			status, err := sup.Status(name)
			if err != nil {
				return err
			}
			healthy, healthErr := sup.HealthCheck(cmd.Context(), name)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (healthy=%t)\n", name, status, healthy)
			if healthErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  health check error: %s\n", healthErr)
			}
			return nil
		},
	}
}

func newServicesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known service definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := service.NewRegistry()
			if err != nil {
				return err
			}
			for _, def := range reg.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", def.Name, def.Description)
			}
			return nil
		},
	}
}
