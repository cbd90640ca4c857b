package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// Event encodings.
const (
	EncodingJSON     = "json"
	EncodingProtobuf = "protobuf"

	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
	contentTypeProto  = "application/protobuf"
)

// RunCompletedEvent is the payload published when a match run finishes.
// Records are left out; subscribers fetch them by ID.
type RunCompletedEvent struct {
	RunID          string    `json:"run_id"`
	QueryCount     int       `json:"query_count"`
	ReferenceCount int       `json:"reference_count"`
	RejectedRows   int       `json:"rejected_rows"`
	DurationMs     float64   `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

func newRunCompletedEvent(run *domain.MatchRun) RunCompletedEvent {
	return RunCompletedEvent{
		RunID:          run.ID,
		QueryCount:     run.QueryCount,
		ReferenceCount: run.ReferenceCount,
		RejectedRows:   run.RejectedRows,
		DurationMs:     float64(run.Duration) / float64(time.Millisecond),
		CreatedAt:      run.CreatedAt,
	}
}

// EncodeRunCompleted serialises ev and returns the matching content type.
// The protobuf form is a google.protobuf.Struct with the JSON field names.
func EncodeRunCompleted(ev RunCompletedEvent, encoding string) ([]byte, string, error) {
	switch encoding {
	case EncodingJSON, "":
		data, err := json.Marshal(ev)
		return data, contentTypeJSON, err
	case EncodingProtobuf:
		s, err := structpb.NewStruct(map[string]interface{}{
			"run_id":          ev.RunID,
			"query_count":     ev.QueryCount,
			"reference_count": ev.ReferenceCount,
			"rejected_rows":   ev.RejectedRows,
			"duration_ms":     ev.DurationMs,
			"created_at":      ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, "", err
		}
		data, err := proto.Marshal(s)
		return data, contentTypeProto, err
	default:
		return nil, "", fmt.Errorf("unknown event encoding %q", encoding)
	}
}

// DecodeRunCompleted is the inverse of EncodeRunCompleted.
func DecodeRunCompleted(data []byte, contentType string) (RunCompletedEvent, error) {
	var ev RunCompletedEvent
	if contentType != contentTypeProto {
		err := json.Unmarshal(data, &ev)
		return ev, err
	}

	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return ev, err
	}
	f := s.GetFields()
	ev.RunID = f["run_id"].GetStringValue()
	ev.QueryCount = int(f["query_count"].GetNumberValue())
	ev.ReferenceCount = int(f["reference_count"].GetNumberValue())
	ev.RejectedRows = int(f["rejected_rows"].GetNumberValue())
	ev.DurationMs = f["duration_ms"].GetNumberValue()
	if ts := f["created_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return ev, fmt.Errorf("created_at: %w", err)
		}
		ev.CreatedAt = t
	}
	return ev, nil
}
