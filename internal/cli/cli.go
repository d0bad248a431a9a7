package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/specialistvlad/equagrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flags holds every flag value of one Parse call.
type flags struct {
	modules     []string
	series      []string
	output      string
	timesteps   int
	logFormat   string
	logLevel    string
	checkNaN    bool
	checkBounds bool
	jacobian    string
	statusPort  int
	progress    bool

	workers int
	members int
	seed    uint64
	summary bool
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// defaultLogFormat is text on an interactive terminal and json otherwise.
func defaultLogFormat() string {
	if stderrIsTerminal() {
		return "text"
	}
	return "json"
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	f := &flags{}
	var config *app.Config

	// build turns the parsed flags of a subcommand into the app config.
	build := func(command app.Command) func(cmd *cobra.Command, paths []string) error {
		return func(cmd *cobra.Command, paths []string) error {
			cfg, err := app.NewConfig(app.Config{
				Command:      command,
				DatasetPaths: paths,
				Modules:      f.modules,
				Timesteps:    f.timesteps,
				Series:       f.series,
				OutputPath:   f.output,
				Summary:      f.summary,
				LogFormat:    f.logFormat,
				LogLevel:     f.logLevel,
				CheckNaN:     f.checkNaN,
				CheckBounds:  f.checkBounds,
				Jacobian:     f.jacobian,
				Workers:      f.workers,
				Members:      f.members,
				Seed:         f.seed,
				SeedSet:      cmd.Flags().Changed("seed"),
				StatusPort:   f.statusPort,
				Progress:     f.progress,
			})
			if err != nil {
				return err
			}
			config = cfg
			return nil
		}
	}

	root := &cobra.Command{
		Use:   "equagrid",
		Short: "Run equation-based models over index sets.",
		Long: `equagrid assembles a model from its compiled-in modules, applies a dataset of
index sets, parameter values and input series written in HCL, and runs it.

DATASET_PATH is a single .hcl file or a directory containing .hcl files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// cobra falls back to os.Args on a nil slice.
	root.SetArgs(append([]string{}, args...))
	root.SetOut(output)
	root.SetErr(output)

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&f.modules, "modules", "m", nil, "Modules to load, in any order. Empty loads all of them.")
	pf.StringVar(&f.logFormat, "log-format", defaultLogFormat(), "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	runFlags := func(cmd *cobra.Command) {
		fs := cmd.Flags()
		fs.StringSliceVarP(&f.series, "series", "s", nil, "Series to write, e.g. 'reach_flow[lower]'. Empty writes all.")
		fs.StringVarP(&f.output, "output", "o", "", "CSV output file. Empty or '-' writes to standard output.")
		fs.IntVarP(&f.timesteps, "timesteps", "t", 0, "Number of timesteps, overriding the dataset's run block.")
		fs.BoolVar(&f.checkNaN, "check-nan", false, "Fail on the first NaN or infinite value.")
		fs.BoolVar(&f.checkBounds, "check-bounds", false, "Fail when a parameter value is outside its declared range.")
		fs.StringVar(&f.jacobian, "jacobian", "reduced", "Jacobian estimation for implicit solvers. Options: 'reduced' or 'full'.")
		fs.IntVar(&f.statusPort, "status-port", 0, "Port for the HTTP health and status server. 0 is disabled.")
		fs.BoolVar(&f.progress, "progress", stderrIsTerminal(), "Show a progress bar on the log output. Defaults to on for a terminal.")
	}

	runCmd := &cobra.Command{
		Use:   "run DATASET_PATH...",
		Short: "Run the model once and write the results as CSV.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  build(app.CommandRun),
	}
	runFlags(runCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule DATASET_PATH...",
		Short: "Print the batch structure of the model.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  build(app.CommandSchedule),
	}

	ensembleCmd := &cobra.Command{
		Use:   "ensemble DATASET_PATH...",
		Short: "Run many members with sampled parameter values.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  build(app.CommandEnsemble),
	}
	runFlags(ensembleCmd)
	ensembleCmd.Flags().IntVarP(&f.workers, "workers", "w", 4, "Number of members running at once.")
	ensembleCmd.Flags().IntVar(&f.members, "members", 0, "Number of members, overriding the dataset's ensemble block.")
	ensembleCmd.Flags().Uint64Var(&f.seed, "seed", 0, "Sampling seed, overriding the dataset's ensemble block.")
	ensembleCmd.Flags().BoolVar(&f.summary, "summary", false, "Write per-timestep statistics instead of every member.")

	root.AddCommand(runCmd, scheduleCmd, ensembleCmd)

	if err := root.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if config == nil {
		slog.Debug("No command ran, exiting after help output.")
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
