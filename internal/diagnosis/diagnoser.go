package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edufarma/edufarma/internal/llm"
	"github.com/edufarma/edufarma/internal/logger"
	"github.com/edufarma/edufarma/internal/store"
)

// ErrMalformedDiagnosis is returned when the filtered or fallback text does
// not decode as a DiagnosisResult. It is not retried.
var ErrMalformedDiagnosis = errors.New("malformed diagnosis")

// CategoryProviderError is the outcome category when the model call failed
// or returned nothing.
const CategoryProviderError Category = "provider-error"

const tracerName = "github.com/edufarma/edufarma/internal/diagnosis"

// DiagnoserConfig holds configuration for the diagnoser.
type DiagnoserConfig struct {
	MaxTokens   int
	Temperature float64

	// Timeout bounds the model call. Expiry is handled like any other model
	// failure. Zero means no timeout.
	Timeout time.Duration
}

// DefaultDiagnoserConfig returns sensible defaults.
func DefaultDiagnoserConfig() DiagnoserConfig {
	return DiagnoserConfig{
		MaxTokens:   800,
		Temperature: 0.2,
		Timeout:     20 * time.Second,
	}
}

// DiagnoserConfigFromEnv applies EDUFARMA_LLM_TEMPERATURE,
// EDUFARMA_LLM_MAX_TOKENS and EDUFARMA_DIAGNOSIS_TIMEOUT over the defaults.
// The result still needs Validate.
func DiagnoserConfigFromEnv() (DiagnoserConfig, error) {
	cfg := DefaultDiagnoserConfig()

	if v := os.Getenv("EDUFARMA_LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("EDUFARMA_LLM_TEMPERATURE: %w", err)
		}
		cfg.Temperature = t
	}
	if v := os.Getenv("EDUFARMA_LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("EDUFARMA_LLM_MAX_TOKENS: %w", err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("EDUFARMA_DIAGNOSIS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("EDUFARMA_DIAGNOSIS_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// Validate checks that sampling stays in the low, near-deterministic range.
func (c DiagnoserConfig) Validate() error {
	if c.Temperature < 0.1 || c.Temperature > 0.3 {
		return fmt.Errorf("diagnoser: temperature %.2f outside 0.1-0.3", c.Temperature)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("diagnoser: negative timeout")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("diagnoser: negative max tokens")
	}
	return nil
}

// Recorder stores diagnosis outcomes for auditing.
type Recorder interface {
	AppendDiagnosis(ctx context.Context, data store.DiagnosisEventData) error
}

// Outcome is a diagnosis plus how it was produced.
type Outcome struct {
	RequestID string
	Result    *DiagnosisResult
	Source    Source

	// Trigger is the safety rule term or provider error kind behind a
	// fallback. Empty for model diagnoses.
	Trigger  string
	Category Category

	PlantPart PlantPart
	IssueType IssueType
	Latency   time.Duration
}

// Option configures a Diagnoser.
type Option func(*Diagnoser)

// WithFilter replaces the default safety filter.
func WithFilter(f *Filter) Option {
	return func(d *Diagnoser) { d.filter = f }
}

// WithRecorder records every outcome.
func WithRecorder(r Recorder) Option {
	return func(d *Diagnoser) { d.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Diagnoser) { d.log = l }
}

// WithTracer sets the tracer. The global tracer provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(d *Diagnoser) { d.tracer = t }
}

// Diagnoser turns symptom reports into vetted diagnoses. It holds no
// per-request state and is safe for concurrent use.
type Diagnoser struct {
	provider llm.Provider
	cfg      DiagnoserConfig
	filter   *Filter
	recorder Recorder
	log      *logger.Logger
	tracer   trace.Tracer
}

// NewDiagnoser creates a diagnoser that calls provider once per request.
func NewDiagnoser(provider llm.Provider, cfg DiagnoserConfig, opts ...Option) *Diagnoser {
	d := &Diagnoser{provider: provider, cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	if d.filter == nil {
		d.filter = DefaultFilter()
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	return d
}

// Diagnose returns a policy-compliant diagnosis for report.
func (d *Diagnoser) Diagnose(ctx context.Context, report SymptomReport) (*DiagnosisResult, error) {
	out, err := d.Run(ctx, report)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Run diagnoses report and reports where the result came from. Model
// failures and policy violations both yield the fallback diagnosis; only a
// result that cannot be decoded is an error.
func (d *Diagnoser) Run(ctx context.Context, report SymptomReport) (*Outcome, error) {
	start := time.Now()
	report.Language = ParseLanguage(string(report.Language))

	ctx, span := d.tracer.Start(ctx, "diagnosis.run")
	defer span.End()

	out := &Outcome{
		RequestID: RequestIDFrom(ctx),
		PlantPart: InferPlantPart(report.Symptoms),
		IssueType: InferIssueType(report.Symptoms),
	}
	log := d.log.With("request_id", out.RequestID)

	var text string
	raw, err := d.generate(ctx, report)
	if err != nil {
		out.Source = SourceFallback
		out.Trigger = llm.ErrorKind(err)
		out.Category = CategoryProviderError
		text = FallbackText(out.PlantPart)
		log.Warn("model call failed, using fallback", "kind", out.Trigger, "plant_part", out.PlantPart, "error", err)
	} else {
		v := d.filter.Inspect(raw, report.Symptoms)
		text = v.Output
		if v.Fallback {
			out.Source = SourceFallback
			out.Trigger = v.Trigger
			out.Category = v.Category
			log.Warn("model output violated safety policy, using fallback", "rule", v.Trigger, "category", v.Category, "plant_part", out.PlantPart)
		} else {
			out.Source = SourceModel
		}
	}

	result, err := parseDiagnosis(text)
	out.Latency = time.Since(start)
	span.SetAttributes(
		attribute.String("diagnosis.source", string(out.Source)),
		attribute.String("diagnosis.trigger", out.Trigger),
		attribute.String("diagnosis.plant_part", string(out.PlantPart)),
		attribute.String("diagnosis.issue_type", string(out.IssueType)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed diagnosis")
		log.Error("diagnosis could not be decoded", "source", out.Source, "error", err)
		d.record(ctx, report, out)
		return nil, fmt.Errorf("%w: %v", ErrMalformedDiagnosis, err)
	}
	out.Result = result

	log.Info("diagnosis served",
		"source", out.Source,
		"plant_part", out.PlantPart,
		"issue_type", out.IssueType,
		"latency_ms", out.Latency.Milliseconds(),
	)
	d.record(ctx, report, out)
	return out, nil
}

// generate makes the single model call for a request.
func (d *Diagnoser) generate(ctx context.Context, report SymptomReport) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeDiagnosis)
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	userMsg, err := buildDiagnosisMessage(report)
	if err != nil {
		return "", fmt.Errorf("build diagnosis prompt: %w", err)
	}

	resp, err := d.provider.Generate(ctx, llm.Request{
		System: diagnosisSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      DiagnosisSchema,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}

	text := extractJSON(string(resp.Content))
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func parseDiagnosis(text string) (*DiagnosisResult, error) {
	raw := json.RawMessage(strings.TrimSpace(text))
	if err := llm.ValidateJSON(DiagnosisSchema, raw); err != nil {
		return nil, err
	}
	var result DiagnosisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (d *Diagnoser) record(ctx context.Context, report SymptomReport, out *Outcome) {
	if d.recorder == nil {
		return
	}
	data := store.DiagnosisEventData{
		RequestID:   out.RequestID,
		Language:    string(report.Language),
		Symptoms:    report.Symptoms,
		Source:      string(out.Source),
		TriggerRule: out.Trigger,
		Category:    string(out.Category),
		PlantPart:   string(out.PlantPart),
		IssueType:   string(out.IssueType),
		LatencyMs:   out.Latency.Milliseconds(),
	}
	if out.Result != nil {
		data.Disease = out.Result.Disease
	}
	if err := d.recorder.AppendDiagnosis(context.WithoutCancel(ctx), data); err != nil {
		d.log.Warn("failed to record diagnosis event", "request_id", out.RequestID, "error", err)
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID in ctx, or a new UUID.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
