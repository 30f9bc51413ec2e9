package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/texdnd/internal/grader"
)

var gradeCmd = &cobra.Command{
	Use:   "grade <artifact.json> <submission>",
	Short: "Grade a submission against a check artifact",
	Long: "The submission is a JSON list like [{\"draggable_id\": \"target_id\"}, ...], " +
		"given inline, as a file path, or as - for stdin. Prints {\"ok\": ..., \"msg\": ...}.",
	Args: cobra.ExactArgs(2),
	RunE: runGrade,
}

func init() {
	gradeCmd.Flags().Float64("tolerance", grader.DefaultEqualOptions().Tolerance, "Absolute tolerance per sample")
	gradeCmd.Flags().Bool("case-insensitive", false, "Fold identifier case when evaluating")
}

func runGrade(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	a, err := grader.LoadArtifact(raw)
	if err != nil {
		return err
	}

	subRaw, err := readSubmission(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}
	sub, err := grader.ParseSubmission(subRaw)
	if err != nil {
		return err
	}

	opts := grader.DefaultEqualOptions()
	opts.Tolerance, _ = cmd.Flags().GetFloat64("tolerance")
	if ci, _ := cmd.Flags().GetBool("case-insensitive"); ci {
		opts.CaseSensitive = false
	}

	res, err := grader.Check(a, sub, opts)
	if err != nil {
		return err
	}
	logger.Debug().Bool("ok", res.OK).Int("placements", len(sub)).Msg("graded")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

func readSubmission(stdin io.Reader, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(strings.TrimSpace(arg), "["):
		return []byte(arg), nil
	}
	b, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}
	return b, nil
}
