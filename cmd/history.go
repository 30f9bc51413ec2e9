package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhisek/texdnd/internal/store"
	"github.com/abhisek/texdnd/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past compiles",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent compiles, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyViewCmd = &cobra.Command{
	Use:   "view <run>",
	Short: "Show one compile by run number or ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryView,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the most recent compiles",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs (0 = all)")
	historyListCmd.Flags().String("outcome", "", "Only runs with this outcome (ok, failed, selftest_failed)")
	historyListCmd.Flags().Duration("since", 0, "Only runs younger than this, e.g. 24h")
	historyPruneCmd.Flags().Int("keep", 100, "Number of runs to keep")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyViewCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := store.QueryOpts{}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Outcome, _ = cmd.Flags().GetString("outcome")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts.From = time.Now().Add(-since)
	}

	runs, err := st.RunRepo().List(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), theme.Hint.Render("no compiles recorded"))
		return nil
	}

	t := theme.Table("#", "when", "problem", "outcome", "tests", "output", "took")
	for _, r := range runs {
		t.Row(
			strconv.FormatInt(r.Sequence, 10),
			humanize.Time(r.Timestamp),
			r.Name,
			outcome(r.Outcome),
			fmt.Sprintf("%d/%d", r.TestsPassed, r.Tests),
			humanize.Bytes(uint64(r.OutputBytes)),
			r.Duration.Round(time.Millisecond).String(),
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func runHistoryView(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	r, err := st.RunRepo().Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	lines := []string{
		theme.Title.Render(fmt.Sprintf("run #%d  %s", r.Sequence, r.Name)),
		theme.Field("id", r.ID),
		theme.Field("when", r.Timestamp.Local().Format(time.RFC1123)+" ("+humanize.Time(r.Timestamp)+")"),
		theme.Field("file", r.SpecPath),
		theme.Field("outcome", outcome(r.Outcome)),
		theme.Field("labels", strconv.Itoa(r.Labels)),
		theme.Field("boxes", strconv.Itoa(r.Boxes)),
		theme.Field("self-tests", fmt.Sprintf("%d/%d passed", r.TestsPassed, r.Tests)),
	}
	if r.BoxedFormula != "" {
		lines = append(lines,
			theme.Field("formula", theme.Code.Render(r.BoxedFormula)),
			theme.Field("samples", r.Samples))
	}
	lines = append(lines,
		theme.Field("output", r.OutputDir+" ("+humanize.Bytes(uint64(r.OutputBytes))+")"),
		theme.Field("took", r.Duration.String()))
	if r.Error != "" {
		lines = append(lines, theme.Hint.Render(r.Error))
	}

	out := cmd.OutOrStdout()
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	keep, _ := cmd.Flags().GetInt("keep")
	n, err := st.RunRepo().Prune(context.Background(), keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s runs\n", humanize.Comma(n))
	return nil
}

func outcome(o string) string {
	return theme.Verdict(o == store.OutcomeOK, o, o)
}
