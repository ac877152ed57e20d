package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/spf13/cobra"
)

// ErrNotOrphan is returned when repair orphans names a blob that is referenced
// by the index or absent from the store.
var ErrNotOrphan = errors.New("not an orphaned blob")

func (a *App) repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repair",
		Short:   "Find and fix drift between the remote index and the blob store",
		GroupID: "maintenance",
	}
	cmd.AddCommand(a.repairReportCmd(), a.repairOrphansCmd(), a.repairMissingCmd())
	return cmd
}

func (a *App) repairReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Diagnose every kind of drift at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := a.rec.Report(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range rep.Describe() {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func (a *App) repairOrphansCmd() *cobra.Command {
	var (
		del      bool
		download string
	)
	cmd := &cobra.Command{
		Use:   "orphans [name]",
		Short: "List orphaned blobs, optionally downloading or deleting them",
		Long: `List blobs that the index does not reference.

With a name, act on that blob only. --download saves the blob(s) into DIR
before anything else happens; --delete then removes them from the store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			names, err := a.rec.FindOrphanedBlobs(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if !slices.Contains(names, args[0]) {
					return fmt.Errorf("%w: %s", ErrNotOrphan, args[0])
				}
				names = args
			}
			if len(names) == 0 {
				fmt.Fprintln(out, "No orphaned blobs")
				return nil
			}

			if download != "" {
				for _, name := range names {
					path, err := a.rec.DownloadOrphan(ctx, name, download)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Downloaded %s to %s\n", name, path)
				}
			}

			switch {
			case del && len(args) == 1:
				n, err := a.rec.DeleteOrphan(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %s (%d blobs)\n", args[0], n)
			case del:
				deleted, err := a.rec.DeleteAllOrphans(ctx)
				for _, name := range deleted {
					fmt.Fprintf(out, "Deleted %s\n", name)
				}
				if err != nil {
					return err
				}
			case download == "":
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&del, "delete", false, "delete the orphaned blobs")
	cmd.Flags().StringVar(&download, "download", "", "download the orphaned blobs into `DIR` first")
	return cmd
}

func (a *App) repairMissingCmd() *cobra.Command {
	var del, yes bool
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List index entries whose blob is gone, optionally dropping them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			missing, err := a.rec.FindMissingEntries(ctx)
			printEntries(out, missing)
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				fmt.Fprintln(out, "No missing entries")
				return nil
			}
			if !del {
				return nil
			}

			if err := a.confirm(yes, "Remove these entries from the index? Their saves cannot be restored."); err != nil {
				return err
			}
			removed, err := a.rec.DeleteMissingEntries(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d entries\n", countEntries(removed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&del, "delete", false, "remove the entries from the index")
	cmd.Flags().BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return cmd
}

func printEntries(w io.Writer, m map[string][]models.SavegameEntry) {
	games := make([]string, 0, len(m))
	for g := range m {
		games = append(games, g)
	}
	sort.Strings(games)
	for _, g := range games {
		for _, e := range m[g] {
			fmt.Fprintf(w, "%s\t%s\t%s\n", g, e.Timestamp.Local().Format(timeLayout), e.ID)
		}
	}
}

func countEntries(m map[string][]models.SavegameEntry) int {
	n := 0
	for _, entries := range m {
		n += len(entries)
	}
	return n
}

func (a *App) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "export [dir]",
		Short:   "Download every blob, index included, for disaster recovery",
		GroupID: "maintenance",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := a.rec.DownloadAll(cmd.Context(), dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				fmt.Fprintln(out, f)
			}
			fmt.Fprintf(out, "Exported %d blobs\n", len(files))
			return nil
		},
	}
}

func (a *App) wipeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "wipe",
		Short:   "Delete every blob in the store, index included",
		GroupID: "maintenance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.confirm(yes,
				"Delete ALL cloud saves of ALL games?",
				"This cannot be undone. Are you sure?",
			)
			if err != nil {
				return err
			}
			n, err := a.rec.DeleteAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("wipe stopped after %d blobs: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d blobs\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return cmd
}
