package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/pkg/geospatial"
)

// CSVOptions controls how a CSV point file is read.
type CSVOptions struct {
	Comma rune
	// HasHeader enables header detection on the first record. It is taken
	// as a header when it names a latitude/longitude column or does not
	// parse as a point; otherwise it is returned as data.
	HasHeader bool
	// LatColumn and LonColumn are used when the header names no
	// latitude/longitude column, or when there is no header.
	LatColumn int
	LonColumn int
}

// DefaultCSVOptions reads "lat,lon" files with or without a header row.
var DefaultCSVOptions = CSVOptions{Comma: ',', HasHeader: true, LatColumn: 0, LonColumn: 1}

var (
	latHeaders = []string{"lat", "latitude", "y"}
	lonHeaders = []string{"lon", "lng", "long", "longitude", "x"}
)

// CSV yields one Row per CSV record. Records that are too short or that the
// CSV reader cannot decode come back as rows with empty fields so that the
// point set builder rejects and reports them.
type CSV struct {
	r       *csv.Reader
	opts    CSVOptions
	started bool
	pending *domain.Row
	latCol  int
	lonCol  int
}

// NewCSV wraps r.
func NewCSV(r io.Reader, opts CSVOptions) *CSV {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	reader := csv.NewReader(r)
	reader.Comma = opts.Comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return &CSV{r: reader, opts: opts, latCol: opts.LatColumn, lonCol: opts.LonColumn}
}

// Next implements ports.PointSource.
func (s *CSV) Next(ctx context.Context) (domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return domain.Row{}, err
	}
	if !s.started {
		s.started = true
		if s.opts.HasHeader {
			if err := s.readHeader(); err != nil {
				return domain.Row{}, err
			}
		}
	}
	if s.pending != nil {
		row := *s.pending
		s.pending = nil
		return row, nil
	}

	record, err := s.r.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return domain.Row{Line: perr.StartLine}, nil
		}
		return domain.Row{}, err
	}

	line, _ := s.r.FieldPos(0)
	return domain.Row{
		Line: line,
		Lat:  field(record, s.latCol),
		Lon:  field(record, s.lonCol),
	}, nil
}

func (s *CSV) readHeader() error {
	header, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("read csv header: %w", err)
	}
	cols := indexColumns(header)
	latCol, latOK := lookup(cols, latHeaders)
	lonCol, lonOK := lookup(cols, lonHeaders)
	if latOK {
		s.latCol = latCol
	}
	if lonOK {
		s.lonCol = lonCol
	}
	if latOK || lonOK {
		return nil
	}

	lat, lon := field(header, s.latCol), field(header, s.lonCol)
	if _, err := geospatial.ParsePoint(lat, lon); err == nil {
		line, _ := s.r.FieldPos(0)
		s.pending = &domain.Row{Line: line, Lat: lat, Lon: lon}
	}
	return nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := m[h]; !dup {
			m[h] = i
		}
	}
	return m
}

func lookup(cols map[string]int, names []string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
