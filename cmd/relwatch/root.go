package main

import (
	"github.com/spf13/cobra"

	"github.com/dikkadev/relwatch/pkg/config"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "relwatch",
		Short: "Watch GitHub releases and git tags for new versions",
		Long: `relwatch keeps a list of programs and the version you run of each.
It checks their GitHub releases or git tags for newer versions, either on
demand or on a schedule, and sends a notification through ntfy when an
update shows up.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/relwatch/config.toml)")
	flags.String("db-path", config.DefaultDBPath, "path to the program database")
	flags.String("github-token", "", "GitHub token for API access")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "print debug output")

	root.AddCommand(
		newAddProgramCmd(a),
		newRemoveProgramCmd(a),
		newListProgramsCmd(a),
		newUpdateCmd(a),
		newRunCmd(a),
		newRunTimedCmd(a),
		newHistoryCmd(a),
		newLatestCheckCmd(a),
		newConfigCmd(a),
	)
	return root
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Show(cmd.OutOrStdout())
			return nil
		},
	}
}
