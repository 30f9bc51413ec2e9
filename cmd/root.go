package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/texdnd/internal/store"
)

// logger is configured from the verbosity flags before any command runs.
var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "texdnd",
	Short: "Compile LaTeX drag-and-drop formula problems",
	Long: "texdnd turns a .dndspec problem description into drag-and-drop images, an edX " +
		"customresponse descriptor and a formula check artifact, and grades submissions against it.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite history database (overrides TEXDND_DB env var)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolP("very-verbose", "V", false, "Trace logging, including artifact dumps")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = zerolog.DebugLevel
	}
	if v, _ := cmd.Flags().GetBool("very-verbose"); v {
		level = zerolog.TraceLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then TEXDND_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("db", path).Msg("opening history")
	return store.Open(path)
}

func veryVerbose(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("very-verbose")
	return v
}
