package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2/table"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/abhisek/texdnd/internal/compiler"
	"github.com/abhisek/texdnd/internal/dndspec"
	"github.com/abhisek/texdnd/internal/grader"
	"github.com/abhisek/texdnd/internal/label"
	"github.com/abhisek/texdnd/internal/ui/theme"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.dndspec>",
	Short: "Compile a problem in memory and show its labels, formula and self-tests",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().String("cfn", "", "Custom check function name")
	inspectCmd.Flags().BoolP("can-reuse-labels", "C", false, "Allow a draggable to be dropped on several targets")
}

func runInspect(cmd *cobra.Command, args []string) error {
	spec, err := dndspec.ParseFile(args[0])
	if err != nil {
		return err
	}
	prob, err := compiler.Compile(spec, compiler.DefaultConfig())
	if err != nil {
		return err
	}
	cfn, _ := cmd.Flags().GetString("cfn")
	canReuse, _ := cmd.Flags().GetBool("can-reuse-labels")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.Title.Render(spec.Name))

	labels := theme.Table("label", "kind", "math exp", "variable", "draggable", "boxes")
	for _, l := range prob.Registry.Labels() {
		boxes := make([]string, 0, len(l.Indices()))
		if l.Kind == label.KindMatch {
			for _, k := range l.Indices() {
				boxes = append(boxes, strconv.Itoa(k))
			}
		}
		labels.Row(l.Text, string(l.Kind), l.MathExp, l.Variable, l.DraggableID, strings.Join(boxes, " "))
	}
	fmt.Fprintln(out, labels.Render())

	fmt.Fprintln(out, theme.Field("diagram", prob.Expression))
	if prob.BoxedFormula == "" {
		fmt.Fprintln(out, theme.Hint.Render("no CHECK_FORMULA: graded by exact placement"))
	} else {
		fmt.Fprintln(out, theme.Field("formula", theme.Code.Render(prob.BoxedFormula)))
		fmt.Fprintln(out, theme.Field("samples", prob.Samples))
	}

	if veryVerbose(cmd) {
		pretty.Fprintf(out, "%# v\n", prob.Artifact(cfn, canReuse))
	}

	results, err := prob.SelfTest(cfn, grader.DefaultEqualOptions())
	if len(results) > 0 {
		fmt.Fprintln(out, selfTestTable(results).Render())
	}
	return err
}

func selfTestTable(results []grader.TestResult) *table.Table {
	t := theme.Table("#", "expect", "formula", "checker", "")
	for _, r := range results {
		f := r.Assertion.Formula
		if f == "" {
			f = "(answer key)"
		}
		t.Row(
			strconv.Itoa(r.Index),
			string(r.Assertion.Expect),
			f,
			theme.Verdict(r.Result.OK, "ok", "not ok"),
			theme.Verdict(r.Passed, "pass", "FAIL"),
		)
	}
	return t
}
