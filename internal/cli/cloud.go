package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *App) cloudCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cloud",
		Short:   "Inspect the remote index",
		GroupID: "cloud",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "games",
		Short: "List games with cloud saves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			games, err := a.engine.CloudGames(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(games) == 0 {
				fmt.Fprintln(out, "No games in the cloud")
				return nil
			}
			for _, g := range games {
				fmt.Fprintln(out, g)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "saves <game>",
		Short: "List a game's cloud saves, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game := args[0]
			saves, err := a.engine.Saves(cmd.Context(), game)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(saves) == 0 {
				fmt.Fprintf(out, "No cloud saves for %s\n", game)
			}
			for i, s := range saves {
				fmt.Fprintf(out, "[%d] %s  %s\n", i, s.Timestamp.Local().Format(timeLayout), s.ID)
			}

			if _, err := a.engine.InstallDir(game); err == nil {
				ts, err := a.engine.LocalSaveTimestamp(game)
				switch {
				case err != nil:
					fmt.Fprintf(out, "Local save: unavailable (%v)\n", err)
				case ts.IsZero():
					fmt.Fprintln(out, "Local save: none")
				default:
					fmt.Fprintf(out, "Local save: %s\n", ts.Local().Format(timeLayout))
				}
			}
			return nil
		},
	})

	return cmd
}

func (a *App) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "upload <game>",
		Short:   "Snapshot a linked game's saves and upload them",
		GroupID: "cloud",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.engine.UploadSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s save %s (%s)\n",
				args[0], entry.ID, entry.Timestamp.Local().Format(timeLayout))
			return nil
		},
	}
}

func (a *App) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "restore <game> <index>",
		Short:   "Replace a linked game's saves with a cloud save",
		GroupID: "cloud",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			if err := a.engine.DownloadSnapshot(cmd.Context(), args[0], i); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s save [%d]\n", args[0], i)
			return nil
		},
	}
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <game> <index>",
		Short:   "Delete one cloud save",
		GroupID: "cloud",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			entry, err := a.engine.DeleteSave(cmd.Context(), args[0], i)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s save %s\n", args[0], entry.ID)
			return nil
		},
	}
}

func (a *App) deleteGameCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete-game <game>",
		Short:   "Delete every cloud save of a game",
		GroupID: "cloud",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.confirm(yes, fmt.Sprintf("Delete all cloud saves of %s?", args[0])); err != nil {
				return err
			}
			removed, err := a.engine.DeleteGameFromCloud(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d saves of %s\n", len(removed), args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return cmd
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid save index %q", s)
	}
	return i, nil
}
