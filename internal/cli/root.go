package cli

import (
	"github.com/dmitrijs2005/savegamesync/internal/buildinfo"
	"github.com/spf13/cobra"
)

func (a *App) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "savesync",
		Short:         "Back up and restore game saves through a cloud blob store",
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.shell(cmd.Context())
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddGroup(
		&cobra.Group{ID: "local", Title: "Local games:"},
		&cobra.Group{ID: "cloud", Title: "Cloud saves:"},
		&cobra.Group{ID: "maintenance", Title: "Maintenance:"},
	)

	root.AddCommand(
		a.gamesCmd(),
		a.linkCmd(),
		a.unlinkCmd(),
		a.specsCmd(),
		a.cloudCmd(),
		a.uploadCmd(),
		a.restoreCmd(),
		a.deleteCmd(),
		a.deleteGameCmd(),
		a.repairCmd(),
		a.exportCmd(),
		a.wipeCmd(),
		a.shellCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *App) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.shell(cmd.Context())
			return nil
		},
	}
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}
