package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// UsageStats aggregates LLM usage for one purpose or model.
type UsageStats struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// DiagnosisEventData records the outcome of one diagnosis request.
// Source is "model" or "fallback"; TriggerRule names the safety rule term
// or provider failure kind that forced a fallback.
type DiagnosisEventData struct {
	RequestID   string
	Language    string
	Symptoms    string
	Source      string
	TriggerRule string
	Category    string
	PlantPart   string
	IssueType   string
	Disease     string
	LatencyMs   int64
}

// DiagnosisEvent is a stored diagnosis event.
type DiagnosisEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	DiagnosisEventData
}

// FallbackStat counts diagnoses per source and trigger.
type FallbackStat struct {
	Source      string
	TriggerRule string
	Count       int
}

// LLMEventWriter appends LLM request events.
type LLMEventWriter interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// DiagnosisEventWriter appends diagnosis events.
type DiagnosisEventWriter interface {
	AppendDiagnosis(ctx context.Context, data DiagnosisEventData) error
}

// EventRepo provides append and query access to audit events.
type EventRepo interface {
	LLMEventWriter
	DiagnosisEventWriter

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one LLM event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]UsageStats, error)
	LLMUsageByModel(ctx context.Context) ([]UsageStats, error)

	// QueryDiagnoses returns diagnosis events, newest first.
	QueryDiagnoses(ctx context.Context, opts QueryOpts) ([]DiagnosisEvent, error)

	FallbackStats(ctx context.Context) ([]FallbackStat, error)
}
