package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MatchRecord",
		Fields: graphql.Fields{
			"input_point":   &graphql.Field{Type: pointType},
			"closest_point": &graphql.Field{Type: pointType},
			"distance_km":   &graphql.Field{Type: graphql.Float},
		},
	})

	rejectedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RejectedRow",
		Fields: graphql.Fields{
			"set":     &graphql.Field{Type: graphql.String},
			"line":    &graphql.Field{Type: graphql.Int},
			"raw":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"reason":  &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MatchRun",
		Fields: graphql.Fields{
			"run_id":          &graphql.Field{Type: graphql.String},
			"query_count":     &graphql.Field{Type: graphql.Int},
			"reference_count": &graphql.Field{Type: graphql.Int},
			"rejected_rows":   &graphql.Field{Type: graphql.Int},
			"duration_ms":     &graphql.Field{Type: graphql.Float},
			"created_at":      &graphql.Field{Type: graphql.String},
			"rejected":        &graphql.Field{Type: graphql.NewList(rejectedType)},
			"results":         &graphql.Field{Type: graphql.NewList(recordType)},
		},
	})

	runPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RunPage",
		Fields: graphql.Fields{
			"total": &graphql.Field{Type: graphql.Int},
			"runs":  &graphql.Field{Type: graphql.NewList(runType)},
		},
	})

	parsedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ParsedCoordinate",
		Fields: graphql.Fields{
			"raw":        &graphql.Field{Type: graphql.String},
			"value":      &graphql.Field{Type: graphql.Float},
			"format":     &graphql.Field{Type: graphql.String},
			"hemisphere": &graphql.Field{Type: graphql.String},
			"error":      &graphql.Field{Type: graphql.String},
		},
	})

	// Coordinates are strings so every supported notation can be sent.
	pointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"parse": &graphql.Field{
				Type:        graphql.NewList(parsedType),
				Description: "Normalise coordinate tokens to decimal degrees",
				Args: graphql.FieldConfigArgument{
					"coordinates": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, _ := p.Args["coordinates"].([]interface{})
					if len(raw) > deps.maxPoints() {
						return nil, fmt.Errorf("at most %d coordinates", deps.maxPoints())
					}
					out := make([]map[string]interface{}, len(raw))
					for i, v := range raw {
						text, _ := v.(string)
						pc := parseOne(text)
						m := map[string]interface{}{"raw": pc.Raw}
						if pc.Value != nil {
							m["value"] = *pc.Value
							m["format"] = pc.Format
						}
						if pc.Hemisphere != "" {
							m["hemisphere"] = pc.Hemisphere
						}
						if pc.Error != "" {
							m["error"] = pc.Error
						}
						out[i] = m
					}
					return out, nil
				},
			},
			"run": &graphql.Field{
				Type:        runType,
				Description: "Get a stored match run by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					run, err := deps.Matcher.GetRun(p.Context, id)
					if err != nil {
						return nil, err
					}
					return newMatchResponse(run, deps.Precision), nil
				},
			},
			"runs": &graphql.Field{
				Type:        runPageType,
				Description: "List stored match runs, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					runs, total, err := deps.Matcher.ListRuns(p.Context, offset, limit)
					if err != nil {
						return nil, err
					}
					out := make([]MatchResponse, len(runs))
					for i := range runs {
						out[i] = newMatchResponse(&runs[i], deps.Precision)
					}
					return map[string]interface{}{"total": total, "runs": out}, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"match": &graphql.Field{
				Type:        runType,
				Description: "Match each query point with its nearest reference point",
				Args: graphql.FieldConfigArgument{
					"query":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(pointInput)))},
					"reference": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(pointInput)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					job := &domain.MatchJob{
						Query:     rawPoints(p.Args["query"]),
						Reference: rawPoints(p.Args["reference"]),
					}
					if len(job.Query) > deps.maxPoints() || len(job.Reference) > deps.maxPoints() {
						return nil, fmt.Errorf("at most %d points per list", deps.maxPoints())
					}
					res, err := deps.Jobs.Run(p.Context, job)
					if err != nil {
						return nil, err
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
					return resp, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func rawPoints(arg interface{}) []domain.RawPoint {
	list, _ := arg.([]interface{})
	out := make([]domain.RawPoint, 0, len(list))
	for _, v := range list {
		m, _ := v.(map[string]interface{})
		lat, _ := m["lat"].(string)
		lon, _ := m["lon"].(string)
		out = append(out, domain.RawPoint{Lat: lat, Lon: lon})
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
