package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhisek/texdnd/internal/latex"
	"github.com/abhisek/texdnd/internal/pipeline"
	"github.com/abhisek/texdnd/internal/raster"
	"github.com/abhisek/texdnd/internal/store"
	"github.com/abhisek/texdnd/internal/ui/theme"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file.dndspec | file.tex>...",
	Short: "Compile problem files into images, XML and a check artifact",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompile,
}

func init() {
	f := compileCmd.Flags()
	f.BoolP("can-reuse-labels", "C", false, "Allow a draggable to be dropped on several targets")
	f.BoolP("skip-latex-compilation", "s", false, "Reuse the PDF and .aux of an earlier run")
	f.StringP("output-directory", "d", "", "Directory for generated files (default: next to the problem file)")
	f.StringP("url-for-images", "u", "", "Base URL for images in the XML (default /static/images)")
	f.StringP("resolution", "r", "", "Image resolution: DPI, max, maxDPI or max:WIDTH")
	f.String("cfn", "", "Custom check function name; disables formula grading")
	f.Bool("output-tex", false, "Stop after writing the .tex file and running self-tests (.dndspec input only)")
	f.Bool("cleanup", false, "Remove stale solution images and intermediate PDFs")
	f.Bool("nonrandom", false, "Use a fixed solution image name")
	f.Bool("catsoop", false, "Also write catsoop markdown")
	f.Bool("no-history", false, "Do not record the compile in the history database")
}

func compileConfig(cmd *cobra.Command) pipeline.Config {
	cfg := pipeline.ConfigFromEnv()
	f := cmd.Flags()

	if v, _ := f.GetString("output-directory"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := f.GetString("url-for-images"); v != "" {
		cfg.ImageURL = v
	}
	if v, _ := f.GetString("resolution"); v != "" {
		cfg.Resolution = v
	}
	cfg.Cfn, _ = f.GetString("cfn")
	cfg.CanReuse, _ = f.GetBool("can-reuse-labels")
	cfg.SkipLaTeX, _ = f.GetBool("skip-latex-compilation")
	cfg.OutputTex, _ = f.GetBool("output-tex")
	cfg.Cleanup, _ = f.GetBool("cleanup")
	cfg.NonRandom, _ = f.GetBool("nonrandom")
	cfg.Catsoop, _ = f.GetBool("catsoop")
	return cfg
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg := compileConfig(cmd)
	if cfg.Resolution != "" {
		if _, err := raster.ParseResolution(cfg.Resolution); err != nil {
			return err
		}
	}

	var runs store.RunRepo
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		runs = st.RunRepo()
	}

	p := pipeline.New(cfg,
		latex.NewPDFLaTeX(cfg.LaTeX, logger),
		raster.NewPoppler(cfg.Raster, logger),
		runs, logger)

	var failed []string
	for _, path := range args {
		res, err := p.Run(context.Background(), path)
		fmt.Fprintln(cmd.OutOrStdout(), compileReport(path, res, err))
		if err != nil {
			failed = append(failed, filepath.Base(path))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d problems failed: %s", len(failed), len(args), strings.Join(failed, ", "))
	}
	return nil
}

func compileReport(path string, res *pipeline.Result, err error) string {
	var lines []string
	lines = append(lines, theme.Title.Render(filepath.Base(path)))

	if res != nil && res.Problem != nil {
		prob := res.Problem
		lines = append(lines,
			theme.Field("labels", fmt.Sprint(len(prob.Registry.Labels()))),
			theme.Field("variables", strings.Join(prob.Variables, ", ")),
		)
		if prob.BoxedFormula != "" {
			lines = append(lines,
				theme.Field("formula", theme.Code.Render(prob.BoxedFormula)),
				theme.Field("samples", prob.Samples),
			)
		}
		if res.Tests != nil {
			passed := 0
			for _, t := range res.Tests {
				if t.Passed {
					passed++
				}
			}
			lines = append(lines, theme.Field("self-tests",
				theme.Verdict(passed == len(res.Tests) && err == nil,
					fmt.Sprintf("%d/%d passed", passed, len(res.Tests)),
					fmt.Sprintf("%d/%d passed", passed, len(res.Tests)))))
		}
	}
	if res != nil && len(res.Files) > 0 {
		lines = append(lines, theme.Field("output",
			fmt.Sprintf("%d files, %s", len(res.Files), humanize.Bytes(uint64(res.Bytes)))))
	}
	if res != nil && res.Run != nil && res.Run.Sequence > 0 {
		lines = append(lines, theme.Field("run", fmt.Sprintf("#%d", res.Run.Sequence)))
	}

	if err != nil {
		lines = append(lines, theme.Field("result", theme.Incorrect.Render("FAILED")), theme.Hint.Render(err.Error()))
	} else {
		lines = append(lines, theme.Field("result", theme.Correct.Render("OK")))
	}
	return theme.Card.Render(strings.Join(lines, "\n"))
}
