// Package cli implements the sparsetable command line: it reads a sequence and
// a list of ranges, builds a sparse table and prints one result per range.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/AlexWan0/go-sparsetable"
	"github.com/AlexWan0/go-sparsetable/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const (
	rootCmdUse   = "sparsetable"
	rootCmdShort = "Answer range max/min queries over a static sequence"
	rootCmdLong  = `sparsetable reads an integer N, then N integers, then an integer Q,
then Q pairs "l r" (1-based, inclusive) and prints the aggregate of each
range followed by its position.

With --load, the sequence is read from a saved index and the input holds
only Q and the pairs.`

	indexFileMode = 0o644
	maxQueries    = math.MaxInt
)

type runOptions struct {
	configPath string
	inputPath  string
	savePath   string
	loadPath   string

	operator  string
	format    string
	maxMemory string
	logLevel  string
	logJSON   bool
}

// overrides returns the flags that were set explicitly, keyed by config key.
func (o *runOptions) overrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	flags := cmd.Flags()

	if flags.Changed("op") {
		out[config.KeyOperator] = o.operator
	}

	if flags.Changed("format") {
		out[config.KeyFormat] = o.format
	}

	if flags.Changed("max-memory") {
		out[config.KeyMaxMemory] = o.maxMemory
	}

	if flags.Changed("log-level") {
		out[config.KeyLogLevel] = o.logLevel
	}

	if flags.Changed("log-json") {
		out[config.KeyLogJSON] = o.logJSON
	}

	return out
}

// NewRootCommand creates the sparsetable root command.
func NewRootCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:           rootCmdUse,
		Short:         rootCmdShort,
		Long:          rootCmdLong,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./sparsetable.yaml)")
	flags.StringVarP(&opts.inputPath, "input", "i", "", "read input from file instead of stdin")
	flags.StringVar(&opts.savePath, "save", "", "write the built index to file")
	flags.StringVar(&opts.loadPath, "load", "", "read the index from file instead of the input")
	flags.StringVar(&opts.operator, "op", config.OperatorMax, "aggregation operator: max or min")
	flags.StringVarP(&opts.format, "format", "f", config.FormatText, "output format: text, json, yaml or table")
	flags.StringVar(&opts.maxMemory, "max-memory", "0", "refuse to build indexes larger than this (e.g. 512MiB); 0 disables")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sparsetable %s\n", Version)
		},
	}
}

func runRoot(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := config.LoadConfig(opts.configPath, opts.overrides(cmd))
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()

	if opts.inputPath != "" {
		f, openErr := os.Open(opts.inputPath)
		if openErr != nil {
			return fmt.Errorf("open input: %w", openErr)
		}

		defer f.Close()

		in = f
	}

	return run(cfg, opts, in, cmd.OutOrStdout(), logger)
}

func run(cfg *config.Config, opts *runOptions, in io.Reader, out io.Writer, logger *slog.Logger) error {
	tr := newTokenReader(in)

	st, err := obtainIndex(cfg, opts, tr, logger)
	if err != nil {
		return err
	}

	if opts.savePath != "" {
		if err := saveIndex(st, opts.savePath, logger); err != nil {
			return err
		}
	}

	rw, err := newResultWriter(cfg.Output.Format, out)
	if err != nil {
		return err
	}

	queryErr := answerQueries(st, tr, rw, logger)

	closeErr := rw.Close()
	if queryErr != nil {
		return queryErr
	}

	return closeErr
}

func operatorFor(name string) sparsetable.Operator[int64] {
	if name == config.OperatorMin {
		return sparsetable.Int64Min
	}

	return sparsetable.Int64Max
}

// obtainIndex loads the index named by --load or builds one from the input sequence.
func obtainIndex(
	cfg *config.Config,
	opts *runOptions,
	tr *tokenReader,
	logger *slog.Logger,
) (*sparsetable.SparseTable[int64], error) {
	op := operatorFor(cfg.Index.Operator)

	if opts.loadPath != "" {
		data, err := os.ReadFile(opts.loadPath)
		if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}

		st, err := sparsetable.Unmarshal(data, op)
		if err != nil {
			return nil, fmt.Errorf("load index %s: %w", opts.loadPath, err)
		}

		logger.Info("index loaded",
			slog.String("path", opts.loadPath),
			slog.Int("num", st.Num()),
			slog.String("operator", cfg.Index.Operator))

		return st, nil
	}

	seq, err := readSequence(tr)
	if err != nil {
		return nil, err
	}

	budget, err := cfg.Index.MaxMemoryBytes()
	if err != nil {
		return nil, err
	}

	st, err := sparsetable.New(seq, op, sparsetable.WithMaxBytes(budget))
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	logger.Info("index built",
		slog.Int("num", st.Num()),
		slog.Int("levels", st.Levels()),
		slog.String("operator", cfg.Index.Operator),
		slog.String("footprint", humanize.IBytes(sparsetable.EstimateBytes[int64](st.Num()))))

	return st, nil
}

func saveIndex(st *sparsetable.SparseTable[int64], path string, logger *slog.Logger) error {
	data, err := st.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	if err := os.WriteFile(path, data, indexFileMode); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	logger.Info("index saved", slog.String("path", path), slog.String("size", humanize.IBytes(uint64(len(data)))))

	return nil
}

// answerQueries reads Q and Q ranges and writes one result per range.
// It stops at the first malformed range.
func answerQueries(st *sparsetable.SparseTable[int64], tr *tokenReader, rw resultWriter, logger *slog.Logger) error {
	q, err := tr.nextCount(maxQueries)
	if err != nil {
		return fmt.Errorf("query count: %w", err)
	}

	for i := 1; i <= q; i++ {
		l, r, err := readRange(tr)
		if err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}

		pos, val, err := st.Query(l, r)
		if err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}

		logger.Debug("query", slog.Int("l", l), slog.Int("r", r), slog.Int64("value", val), slog.Int("position", pos))

		if err := rw.Write(result{Query: i, Left: l, Right: r, Value: val, Position: pos}); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	return nil
}
