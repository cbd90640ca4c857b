package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samirrijal/geomatch/internal/adapters/output"
	"github.com/samirrijal/geomatch/internal/adapters/postgres"
	"github.com/samirrijal/geomatch/internal/adapters/source"
	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/core/usecases"
	"github.com/samirrijal/geomatch/internal/pkg/config"
	"github.com/samirrijal/geomatch/internal/pkg/logging"
)

// MatchCommand runs a match locally.
type MatchCommand struct {
	Interactive bool   `short:"I" long:"interactive" description:"Prompt for both point sets instead of reading files"`
	Format      string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" choice:"geojson" choice:"csv" default:"json"`
	Output      string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Precision   int    `short:"p" long:"precision" description:"Decimals kept for distances (default from config)" default:"-1"`
	Candidates  int    `short:"k" long:"candidates" description:"Nearest candidates re-ranked by great-circle distance (default from config)"`
	Delimiter   string `short:"d" long:"delimiter" description:"CSV field delimiter (default from config)"`
	NoHeader    bool   `long:"no-header" description:"CSV files have no header row"`
	Save        bool   `long:"save" description:"Store the run in Postgres"`

	Args struct {
		Query     string `positional-arg-name:"query.csv"`
		Reference string `positional-arg-name:"reference.csv"`
	} `positional-args:"yes"`

	// stdin, stdout and stderr are swapped in tests.
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Execute implements flags.Commander.
func (c *MatchCommand) Execute([]string) error {
	if !c.Interactive && (c.Args.Query == "" || c.Args.Reference == "") {
		return errors.New("match needs query.csv and reference.csv, or --interactive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c.applyConfig(cfg.Match)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := output.New(c.Format, c.Precision)
	if err != nil {
		return err
	}

	var runs ports.MatchRunRepository
	if c.Save {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		runs = postgres.NewMatchRunRepo(db)
	}

	// Skipped rows are reported once on stderr below, so the builder runs
	// without the log observer.
	builder := usecases.NewPointSetBuilder(nil)
	matcher := usecases.NewMatchService(usecases.MatchOptions{Candidates: c.Candidates}, logging.NewObserver(slog.Default()), nil, runs, nil)

	a, b, rejected, err := c.load(ctx, builder, cfg.Match)
	if err != nil {
		return err
	}

	run, err := matcher.Run(ctx, a, b, len(rejected))
	if err != nil {
		return err
	}
	for _, r := range rejected {
		fmt.Fprintf(c.errOut(), "skipped %s line %d: %v\n", r.Set, r.Line, r.Err)
	}
	if c.Save {
		fmt.Fprintf(c.errOut(), "saved run %s\n", run.ID)
	}

	out := c.stdout
	if out == nil {
		out = os.Stdout
	}
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return w.Write(out, run.Records)
}

func (c *MatchCommand) errOut() io.Writer {
	if c.stderr == nil {
		return os.Stderr
	}
	return c.stderr
}

func (c *MatchCommand) applyConfig(m config.MatchConfig) {
	if c.Precision < 0 {
		c.Precision = m.Precision
	}
	if c.Candidates <= 0 {
		c.Candidates = m.Candidates
	}
	if c.Delimiter == "" {
		c.Delimiter = m.Delimiter
	}
}

func (c *MatchCommand) load(ctx context.Context, builder *usecases.PointSetBuilder, m config.MatchConfig) (domain.PointSet, domain.PointSet, []domain.RowError, error) {
	var srcA, srcB ports.PointSource
	if c.Interactive {
		in := c.stdin
		if in == nil {
			in = os.Stdin
		}
		br := bufio.NewReader(in)
		srcA = source.NewPrompt(br, c.errOut(), "query")
		srcB = source.NewPrompt(br, c.errOut(), "reference")
	} else {
		opts := source.CSVOptions{
			Comma:     config.MatchConfig{Delimiter: c.Delimiter}.Comma(),
			HasHeader: m.HasHeader && !c.NoHeader,
			LatColumn: m.LatColumn,
			LonColumn: m.LonColumn,
		}
		fa, err := os.Open(c.Args.Query)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open query points: %w", err)
		}
		defer fa.Close()
		fb, err := os.Open(c.Args.Reference)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open reference points: %w", err)
		}
		defer fb.Close()
		srcA = source.NewCSV(fa, opts)
		srcB = source.NewCSV(fb, opts)
	}

	a, rejA, err := builder.Build(ctx, "query", srcA)
	if err != nil {
		return nil, nil, nil, err
	}
	b, rejB, err := builder.Build(ctx, "reference", srcB)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, b, append(rejA, rejB...), nil
}
