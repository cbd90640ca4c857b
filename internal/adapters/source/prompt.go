package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Prompt collects coordinates interactively, one latitude and one longitude
// per point. An empty latitude ends the input. Rejected pairs are reported
// back through Rejected and the user is simply asked again.
type Prompt struct {
	in    *bufio.Reader
	out   io.Writer
	label string
	count int
	intro bool
}

// NewPrompt reads answers from in and writes prompts to out. label names
// the set being collected ("first", "second"). Prompts that read the same
// stream in turn must share one *bufio.Reader.
func NewPrompt(in io.Reader, out io.Writer, label string) *Prompt {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &Prompt{in: br, out: out, label: label}
}

// Next implements ports.PointSource.
func (p *Prompt) Next(ctx context.Context) (domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return domain.Row{}, err
	}
	if !p.intro {
		p.intro = true
		fmt.Fprintf(p.out, "Enter points for the %s set (empty latitude to finish).\n", p.label)
	}

	lat, ok := p.ask(fmt.Sprintf("  point %d latitude: ", p.count+1))
	if !ok || lat == "" {
		return domain.Row{}, io.EOF
	}
	lon, ok := p.ask(fmt.Sprintf("  point %d longitude: ", p.count+1))
	if !ok {
		return domain.Row{}, io.EOF
	}

	p.count++
	return domain.Row{Line: p.count, Lat: lat, Lon: lon}, nil
}

// Rejected implements ports.RejectionAware.
func (p *Prompt) Rejected(row domain.Row, err error) {
	p.count--
	fmt.Fprintf(p.out, "  invalid point (%v), please try again.\n", err)
}

func (p *Prompt) ask(q string) (string, bool) {
	fmt.Fprint(p.out, q)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}
