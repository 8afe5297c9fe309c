package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var diagnosisEventColumns = []string{
	"id", "sequence", "timestamp", "request_id", "language", "symptoms",
	"source", "trigger_rule", "category", "plant_part", "issue_type",
	"disease", "latency_ms",
}

func (r *eventRepo) AppendDiagnosis(ctx context.Context, data DiagnosisEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(diagnosisEventsTable).
		Columns(diagnosisEventColumns[1:]...).
		Values(
			seqNum,
			time.Now().UTC(),
			data.RequestID,
			data.Language,
			data.Symptoms,
			data.Source,
			data.TriggerRule,
			data.Category,
			data.PlantPart,
			data.IssueType,
			data.Disease,
			data.LatencyMs,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save diagnosis event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryDiagnoses(ctx context.Context, opts QueryOpts) ([]DiagnosisEvent, error) {
	sel := builder().Select(diagnosisEventColumns...).From(entsql.Table(diagnosisEventsTable))
	applyQueryOpts(sel, opts)

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query diagnosis events: %w", err)
	}
	defer rows.Close()

	var events []DiagnosisEvent
	for rows.Next() {
		var e DiagnosisEvent
		if err := rows.Scan(
			&e.ID,
			&e.Sequence,
			&e.Timestamp,
			&e.RequestID,
			&e.Language,
			&e.Symptoms,
			&e.Source,
			&e.TriggerRule,
			&e.Category,
			&e.PlantPart,
			&e.IssueType,
			&e.Disease,
			&e.LatencyMs,
		); err != nil {
			return nil, fmt.Errorf("scan diagnosis event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// FallbackStats counts diagnoses grouped by source and trigger rule.
func (r *eventRepo) FallbackStats(ctx context.Context) ([]FallbackStat, error) {
	query, args := builder().Select(
		"source",
		"trigger_rule",
		entsql.As(entsql.Count("*"), "n"),
	).
		From(entsql.Table(diagnosisEventsTable)).
		GroupBy("source", "trigger_rule").
		OrderBy("source", "trigger_rule").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fallback stats: %w", err)
	}
	defer rows.Close()

	var stats []FallbackStat
	for rows.Next() {
		var st FallbackStat
		if err := rows.Scan(&st.Source, &st.TriggerRule, &st.Count); err != nil {
			return nil, fmt.Errorf("scan fallback stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
