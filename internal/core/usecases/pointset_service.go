package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/core/ports"
	"github.com/samirrijal/geomatch/internal/pkg/geospatial"
)

// PointSetBuilder turns raw coordinate rows into validated point sets.
// Malformed rows are skipped and reported; they never abort a batch.
type PointSetBuilder struct {
	observer ports.MatchObserver
}

// NewPointSetBuilder creates a new PointSetBuilder. observer may be nil.
func NewPointSetBuilder(observer ports.MatchObserver) *PointSetBuilder {
	if observer == nil {
		observer = NopObserver{}
	}
	return &PointSetBuilder{observer: observer}
}

// Build drains src into a PointSet. set names the input ("query",
// "reference") for instrumentation.
func (b *PointSetBuilder) Build(ctx context.Context, set string, src ports.PointSource) (domain.PointSet, []domain.RowError, error) {
	var (
		points   domain.PointSet
		rejected []domain.RowError
	)
	aware, _ := src.(ports.RejectionAware)

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s points: %w", set, err)
		}

		p, perr := geospatial.ParsePoint(row.Lat, row.Lon)
		if perr != nil {
			rowErr := domain.RowError{Set: set, Line: row.Line, Raw: []string{row.Lat, row.Lon}, Err: perr}
			rejected = append(rejected, rowErr)
			b.observer.RowRejected(ctx, set, rowErr)
			if aware != nil {
				aware.Rejected(row, perr)
			}
			continue
		}
		points = append(points, p)
	}

	return points, rejected, nil
}

// BuildRows is Build over an in-memory slice of rows.
func (b *PointSetBuilder) BuildRows(ctx context.Context, set string, rows []domain.Row) (domain.PointSet, []domain.RowError, error) {
	return b.Build(ctx, set, &rowSource{rows: rows})
}

type rowSource struct {
	rows []domain.Row
	pos  int
}

func (s *rowSource) Next(ctx context.Context) (domain.Row, error) {
	if s.pos >= len(s.rows) {
		return domain.Row{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}
