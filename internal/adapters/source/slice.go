// Package source provides ports.PointSource implementations: CSV files,
// interactive prompts and in-memory slices.
package source

import (
	"context"
	"io"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Slice yields raw points held in memory, numbering them from 1.
type Slice struct {
	points []domain.RawPoint
	pos    int
}

func NewSlice(points []domain.RawPoint) *Slice {
	return &Slice{points: points}
}

// Next implements ports.PointSource.
func (s *Slice) Next(ctx context.Context) (domain.Row, error) {
	if s.pos >= len(s.points) {
		return domain.Row{}, io.EOF
	}
	p := s.points[s.pos]
	s.pos++
	return domain.Row{Line: s.pos, Lat: p.Lat, Lon: p.Lon}, nil
}
