package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event envelope shared by the api and worker
// runtimes. Fields may be added but never renamed or removed.
type Envelope struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	OccurredAt       time.Time `json:"occurred_at"`
	SourceService    string    `json:"source_service"`
	TraceID          string    `json:"trace_id,omitempty"`
	SchemaVersion    int       `json:"schema_version"`
	PartitionKeyPath string    `json:"partition_key_path"`
	PartitionKey     string    `json:"partition_key"`
	// SubjectID is the user the event is about, when there is one.
	SubjectID string          `json:"subject_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}
