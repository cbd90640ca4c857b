package http

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geomatch/internal/adapters/output"
	"github.com/samirrijal/geomatch/internal/core/domain"
	"github.com/samirrijal/geomatch/internal/pkg/geospatial"
)

// MatchRequest is the body of POST /v1/match. Coordinates may be strings in
// any supported notation or plain JSON numbers.
type MatchRequest struct {
	Query     []domain.RawPoint `json:"query"`
	Reference []domain.RawPoint `json:"reference"`
}

// RejectedRow describes an input row that was skipped.
type RejectedRow struct {
	Set     string   `json:"set"`
	Line    int      `json:"line"`
	Raw     []string `json:"raw"`
	Reason  string   `json:"reason"`
	Message string   `json:"message"`
}

// MatchResponse is the JSON answer to POST /v1/match and GET /v1/runs/:id.
type MatchResponse struct {
	RunID          string          `json:"run_id"`
	QueryCount     int             `json:"query_count"`
	ReferenceCount int             `json:"reference_count"`
	RejectedRows   int             `json:"rejected_rows"`
	DurationMs     float64         `json:"duration_ms"`
	CreatedAt      string          `json:"created_at"`
	Rejected       []RejectedRow   `json:"rejected,omitempty"`
	Results        []output.Record `json:"results"`
}

func newMatchResponse(run *domain.MatchRun, precision int) MatchResponse {
	return MatchResponse{
		RunID:          run.ID,
		QueryCount:     run.QueryCount,
		ReferenceCount: run.ReferenceCount,
		RejectedRows:   run.RejectedRows,
		DurationMs:     output.Round(run.Duration.Seconds()*1000, 3),
		CreatedAt:      run.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		Results:        output.Records(run.Records, precision),
	}
}

// MatchHandler matches every query point with its nearest reference point.
// ?format=json (default) returns a MatchResponse; yaml, geojson and csv
// return the bare result set in that format.
func MatchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req MatchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if len(req.Query) > deps.maxPoints() || len(req.Reference) > deps.maxPoints() {
			return errBadRequest(c, fmt.Sprintf("at most %d points per list", deps.maxPoints()))
		}

		format := c.Query("format", output.FormatJSON)
		var w output.Writer
		if format != output.FormatJSON {
			var err error
			if w, err = output.New(format, deps.Precision); err != nil {
				return errBadRequest(c, err.Error())
			}
		}

		job := &domain.MatchJob{Query: req.Query, Reference: req.Reference}
		res, err := deps.Jobs.Run(c.UserContext(), job)
		if err != nil {
			return errFrom(c, err)
		}

		c.Set("X-Run-ID", res.Run.ID)
		if w != nil {
			var buf bytes.Buffer
			if err := w.Write(&buf, res.Run.Records); err != nil {
				return errFrom(c, err)
			}
			c.Set(fiber.HeaderContentType, contentType(format))
			return c.Send(buf.Bytes())
		}

		resp := newMatchResponse(res.Run, deps.Precision)
		for _, r := range res.Rejected {
			resp.Rejected = append(resp.Rejected, RejectedRow{
				Set:     r.Set,
				Line:    r.Line,
				Raw:     r.Raw,
				Reason:  r.Reason(),
				Message: r.Err.Error(),
			})
		}
		return c.JSON(resp)
	}
}

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Coordinates []string `json:"coordinates"`
}

// ParsedCoordinate is one entry of the POST /v1/parse response.
type ParsedCoordinate struct {
	Raw        string   `json:"raw"`
	Value      *float64 `json:"value,omitempty"`
	Format     string   `json:"format,omitempty"`
	Hemisphere string   `json:"hemisphere,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ParseHandler normalises coordinate tokens to signed decimal degrees.
func ParseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ParseRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if len(req.Coordinates) == 0 {
			return errBadRequest(c, "coordinates must not be empty")
		}
		if len(req.Coordinates) > deps.maxPoints() {
			return errBadRequest(c, fmt.Sprintf("at most %d coordinates", deps.maxPoints()))
		}

		out := make([]ParsedCoordinate, len(req.Coordinates))
		for i, text := range req.Coordinates {
			out[i] = parseOne(text)
		}
		return c.JSON(fiber.Map{"results": out})
	}
}

func parseOne(text string) ParsedCoordinate {
	pc := ParsedCoordinate{Raw: text}
	tok, err := geospatial.ClassifyCoordinate(text)
	if err != nil {
		pc.Error = err.Error()
		return pc
	}
	v := tok.Value
	pc.Value = &v
	pc.Format = tok.Format.String()
	if tok.Hemisphere != 0 {
		pc.Hemisphere = string(tok.Hemisphere)
	}
	return pc
}

// ListRunsHandler returns stored run summaries, newest first.
func ListRunsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 20, 100)

		runs, total, err := deps.Matcher.ListRuns(c.UserContext(), offset, limit)
		if err != nil {
			return errFrom(c, err)
		}

		summaries := make([]MatchResponse, len(runs))
		for i := range runs {
			summaries[i] = newMatchResponse(&runs[i], deps.Precision)
			summaries[i].Results = nil
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: summaries, Pagination: pg})
	}
}

// GetRunHandler returns one stored run with its results.
func GetRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "id is required")
		}

		run, err := deps.Matcher.GetRun(c.UserContext(), id)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(newMatchResponse(run, deps.Precision))
	}
}

// DeleteRunHandler removes a stored run.
func DeleteRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Matcher.DeleteRun(c.UserContext(), c.Params("id")); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func contentType(format string) string {
	switch format {
	case output.FormatYAML:
		return "application/yaml"
	case output.FormatGeoJSON:
		return "application/geo+json"
	case output.FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return fiber.MIMEApplicationJSON
	}
}
