package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quizrank-service/internal/config"
	"quizrank-service/internal/ranking"
)

// NewRankingCmd prints the current leaderboard and its movement against the
// previous period, computed offline from the persisted result log.
func NewRankingCmd(configPath *string) *cobra.Command {
	var previous bool

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Print the leaderboard for the current (or previous) period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRanking(cmd.Context(), *configPath, previous)
		},
	}
	cmd.Flags().BoolVar(&previous, "previous", false, "show the previous period instead")
	return cmd
}

func runRanking(ctx context.Context, configPath string, previous bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	snap, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}

	agg := ranking.NewAggregator()
	for _, res := range snap.Results {
		agg.Record(res)
	}

	if previous {
		printEntries(agg.Previous())
		return nil
	}
	printChanges(agg.Compare())
	return nil
}

func printEntries(entries []ranking.Entry) {
	if len(entries) == 0 {
		fmt.Println("No results in this period.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tAVG%\tSCORE\tTESTS")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", i+1, e.Name, e.AveragePercent.String(), e.TotalScore, e.TestCount)
	}
	w.Flush()
}

func printChanges(changes []ranking.Change) {
	if len(changes) == 0 {
		fmt.Println("No results in this period.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tAVG%\tSCORE\tTESTS\tMOVE")
	for _, c := range changes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			c.CurrentRank, c.Entry.Name, c.Entry.AveragePercent.String(),
			c.Entry.TotalScore, c.Entry.TestCount, movement(c))
	}
	w.Flush()
}

func movement(c ranking.Change) string {
	switch {
	case c.New:
		return "new"
	case c.Delta > 0:
		return fmt.Sprintf("+%d", c.Delta)
	case c.Delta < 0:
		return fmt.Sprintf("%d", c.Delta)
	default:
		return "-"
	}
}
