package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	llmRequestEventsTable = "llm_request_events"
	diagnosisEventsTable  = "diagnosis_events"
)

// Every event table starts with id, sequence and timestamp, in that order.
var (
	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	LLMRequestEventsTable = &schema.Table{
		Name:       llmRequestEventsTable,
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{LLMRequestEventsColumns[2]}},
			{Name: "llmrequestevent_provider", Columns: []*schema.Column{LLMRequestEventsColumns[3]}},
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{LLMRequestEventsColumns[5]}},
			{Name: "llmrequestevent_success", Columns: []*schema.Column{LLMRequestEventsColumns[9]}},
		},
	}

	DiagnosisEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "request_id", Type: field.TypeString},
		{Name: "language", Type: field.TypeString},
		{Name: "symptoms", Type: field.TypeString, Size: 2147483647},
		{Name: "source", Type: field.TypeString},
		{Name: "trigger_rule", Type: field.TypeString, Default: ""},
		{Name: "category", Type: field.TypeString, Default: ""},
		{Name: "plant_part", Type: field.TypeString},
		{Name: "issue_type", Type: field.TypeString},
		{Name: "disease", Type: field.TypeString},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
	}
	DiagnosisEventsTable = &schema.Table{
		Name:       diagnosisEventsTable,
		Columns:    DiagnosisEventsColumns,
		PrimaryKey: []*schema.Column{DiagnosisEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "diagnosisevent_timestamp", Columns: []*schema.Column{DiagnosisEventsColumns[2]}},
			{Name: "diagnosisevent_request_id", Columns: []*schema.Column{DiagnosisEventsColumns[3]}},
			{Name: "diagnosisevent_source", Columns: []*schema.Column{DiagnosisEventsColumns[6]}},
		},
	}

	// Tables holds every table the store migrates.
	Tables = []*schema.Table{
		LLMRequestEventsTable,
		DiagnosisEventsTable,
	}
)
