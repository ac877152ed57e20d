package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

func (a *App) gamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "games",
		Short:   "List linked games and their install directories",
		GroupID: "local",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			games := a.engine.LocalGames()
			if len(games) == 0 {
				fmt.Fprintln(out, "No linked games")
				return nil
			}
			for _, g := range games {
				dir, err := a.engine.InstallDir(g)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", g, dir)
			}
			return nil
		},
	}
}

func (a *App) linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "link <game> <install-dir>",
		Short:   "Link a supported game to its install directory",
		GroupID: "local",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.AddLocalGame(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *App) unlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unlink <game>",
		Short:   "Forget a linked game; cloud saves are kept",
		GroupID: "local",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.RemoveLocalGame(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlinked %s\n", args[0])
			return nil
		},
	}
}

func (a *App) specsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "specs",
		Short:   "List supported games and the paths their saves live in",
		GroupID: "local",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, s := range a.engine.Specs() {
				fmt.Fprintf(out, "%s\t%s\n", s.GameName, strings.Join(s.SavePaths, ", "))
			}
			return nil
		},
	}
}
