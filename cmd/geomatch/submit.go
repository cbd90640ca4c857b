package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	natsadapter "github.com/samirrijal/geomatch/internal/adapters/nats"
	"github.com/samirrijal/geomatch/internal/adapters/source"
	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/pkg/config"
)

// SubmitCommand queues a match job for the matcher service.
type SubmitCommand struct {
	Delimiter string `short:"d" long:"delimiter" description:"CSV field delimiter (default from config)"`
	NoHeader  bool   `long:"no-header" description:"CSV files have no header row"`

	Args struct {
		Query     string `positional-arg-name:"query.csv" required:"yes"`
		Reference string `positional-arg-name:"reference.csv" required:"yes"`
	} `positional-args:"yes"`
}

// Execute implements flags.Commander.
func (c *SubmitCommand) Execute([]string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	delim := c.Delimiter
	if delim == "" {
		delim = cfg.Match.Delimiter
	}
	opts := source.CSVOptions{
		Comma:     config.MatchConfig{Delimiter: delim}.Comma(),
		HasHeader: cfg.Match.HasHeader && !c.NoHeader,
		LatColumn: cfg.Match.LatColumn,
		LonColumn: cfg.Match.LonColumn,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	job := &domain.MatchJob{ID: uuid.NewString()}
	if job.Query, err = readRawPoints(ctx, c.Args.Query, opts); err != nil {
		return err
	}
	if job.Reference, err = readRawPoints(ctx, c.Args.Reference, opts); err != nil {
		return err
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Encoding)
	if err != nil {
		return err
	}
	defer pub.Close()

	if err := pub.PublishMatchJob(ctx, job); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	fmt.Println(job.ID)
	return nil
}

// readRawPoints reads a CSV file into unparsed token pairs. Parsing is left
// to the matcher so that rejected rows are reported with the run.
func readRawPoints(ctx context.Context, path string, opts source.CSVOptions) ([]domain.RawPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := source.NewCSV(f, opts)
	points := []domain.RawPoint{}
	for {
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		points = append(points, domain.RawPoint{Lat: row.Lat, Lon: row.Lon})
	}
}
