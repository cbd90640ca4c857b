package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samirrijal/geomatch/internal/pkg/geospatial"
)

// ParseCommand prints the decimal value of coordinate tokens.
type ParseCommand struct {
	stdin  io.Reader
	stdout io.Writer
}

// Execute implements flags.Commander.
func (c *ParseCommand) Execute(args []string) error {
	out := c.stdout
	if out == nil {
		out = os.Stdout
	}
	tokens := args
	if len(tokens) == 0 {
		in := c.stdin
		if in == nil {
			in = os.Stdin
		}
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if t := strings.TrimSpace(sc.Text()); t != "" {
				tokens = append(tokens, t)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read tokens: %w", err)
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	failed := 0
	for _, t := range tokens {
		tok, err := geospatial.ClassifyCoordinate(t)
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t-\terror: %v\n", t, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.6f\n", t, tok.Format, tok.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tokens could not be parsed", failed, len(tokens))
	}
	return nil
}
