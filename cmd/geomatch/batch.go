package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/geomatch/internal/workflows"
)

// BatchCommand starts BatchMatchWorkflow on Temporal.
type BatchCommand struct {
	Wait         bool `short:"w" long:"wait" description:"Wait for the workflow and print its result"`
	RequireEvent bool `long:"require-event" description:"Fail and roll back the run when its completion event cannot be published"`

	Args struct {
		Query     string `positional-arg-name:"query.csv" required:"yes"`
		Reference string `positional-arg-name:"reference.csv" required:"yes"`
	} `positional-args:"yes"`
}

// Execute implements flags.Commander.
func (c *BatchCommand) Execute([]string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	query, err := filepath.Abs(c.Args.Query)
	if err != nil {
		return err
	}
	ref, err := filepath.Abs(c.Args.Reference)
	if err != nil {
		return err
	}

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer tc.Close()

	ctx := context.Background()
	we, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "batch-match-" + uuid.NewString(),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.BatchMatchWorkflow, workflows.BatchMatchInput{
		QueryPath:     query,
		ReferencePath: ref,
		RequireEvent:  c.RequireEvent,
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	if !c.Wait {
		fmt.Println(we.GetID())
		return nil
	}

	var res workflows.BatchMatchResult
	if err := we.Get(ctx, &res); err != nil {
		return fmt.Errorf("workflow %s: %w", we.GetID(), err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
