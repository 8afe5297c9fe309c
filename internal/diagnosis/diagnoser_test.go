package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edufarma/edufarma/internal/llm"
	"github.com/edufarma/edufarma/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// started by an init in a transitive dependency of the genai client
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []store.DiagnosisEventData
	err    error
}

func (r *fakeRecorder) AppendDiagnosis(_ context.Context, data store.DiagnosisEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func (r *fakeRecorder) last(t *testing.T) store.DiagnosisEventData {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

func fallbackResult(part PlantPart) *DiagnosisResult {
	r := GenerateFallback(part)
	return &r
}

func TestDiagnoser_ModelDiagnosisPassesThrough(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(cleanLeafDiagnosis)})
	rec := &fakeRecorder{}
	d := NewDiagnoser(mock, DefaultDiagnoserConfig(), WithRecorder(rec))

	ctx := WithRequestID(context.Background(), "req-1")
	out, err := d.Run(ctx, SymptomReport{Symptoms: "brown spots on leaf after rain", Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, SourceModel, out.Source)
	assert.Empty(t, out.Trigger)
	assert.Equal(t, PartLeaf, out.PlantPart)
	assert.Equal(t, IssueDisease, out.IssueType)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, &DiagnosisResult{
		Disease:     "Leaf spot",
		Severity:    "Low",
		Description: "Brown spots on leaves",
		Cause:       "Fungal infection after rain",
		Treatment: []string{
			"Remove affected leaves",
			"Spray Neem oil 3 ml/L",
			"Use control measures carefully and wear gloves",
		},
	}, out.Result)

	ev := rec.last(t)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, "model", ev.Source)
	assert.Equal(t, "Leaf spot", ev.Disease)
	assert.Equal(t, "en", ev.Language)
}

func TestDiagnoser_RequestShape(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(cleanLeafDiagnosis)})
	d := NewDiagnoser(mock, DefaultDiagnoserConfig())

	_, err := d.Diagnose(context.Background(), SymptomReport{Symptoms: "पत्ते पीले", Language: "hi"})
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, 0.2, req.Temperature)
	assert.Same(t, DiagnosisSchema, req.Schema)
	assert.Contains(t, req.System, "integrated pest management")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, `"पत्ते पीले"`)
	assert.Contains(t, req.Messages[0].Content, "Hindi")
}

// Scenario: the model is unreachable.
func TestDiagnoser_ProviderFailureUsesFallback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("dial tcp: no route to host")}})
	rec := &fakeRecorder{}
	d := NewDiagnoser(mock, DefaultDiagnoserConfig(), WithRecorder(rec))

	out, err := d.Run(context.Background(), SymptomReport{Symptoms: "small holes in brinjal fruit, caterpillar visible"})
	require.NoError(t, err)

	assert.Equal(t, 1, mock.CallCount(), "failed calls are not retried")
	assert.Equal(t, SourceFallback, out.Source)
	assert.Equal(t, "provider-unavailable", out.Trigger)
	assert.Equal(t, CategoryProviderError, out.Category)
	assert.Equal(t, PartFruit, out.PlantPart)
	assert.Equal(t, IssueInsect, out.IssueType)
	assert.Equal(t, "Fruit-related damage or rot", out.Result.Disease)
	assert.Len(t, out.Result.Treatment, 4)
	assert.Equal(t, fallbackResult(PartFruit), out.Result)

	ev := rec.last(t)
	assert.Equal(t, "fallback", ev.Source)
	assert.Equal(t, "provider-unavailable", ev.TriggerRule)
	assert.Equal(t, "fruit", ev.PlantPart)
}

func TestDiagnoser_EmptyResponseUsesFallback(t *testing.T) {
	for _, content := range []string{"", "   \n", "```json\n```"} {
		t.Run(content, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(content)})
			d := NewDiagnoser(mock, DefaultDiagnoserConfig())

			out, err := d.Run(context.Background(), SymptomReport{Symptoms: "root rot"})
			require.NoError(t, err)
			assert.Equal(t, SourceFallback, out.Source)
			assert.Equal(t, "empty-response", out.Trigger)
			assert.Equal(t, fallbackResult(PartRoot), out.Result)
		})
	}
}

func TestDiagnoser_TimeoutUsesFallback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(cleanLeafDiagnosis),
		Delay:   time.Second,
	})
	cfg := DefaultDiagnoserConfig()
	cfg.Timeout = 20 * time.Millisecond
	d := NewDiagnoser(mock, cfg)

	out, err := d.Run(context.Background(), SymptomReport{Symptoms: "stem cracking"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, out.Source)
	assert.Equal(t, "timeout", out.Trigger)
	assert.Equal(t, fallbackResult(PartStem), out.Result)
}

// Scenario: the model recommends a banned substance.
func TestDiagnoser_BannedSubstanceUsesFallback(t *testing.T) {
	raw := `{"disease":"Pest attack","severity":"High","description":"Holes","cause":"Insects","treatment":["spray monocrotophos 2ml/l"]}`
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(raw)})
	d := NewDiagnoser(mock, DefaultDiagnoserConfig())

	out, err := d.Run(context.Background(), SymptomReport{Symptoms: "holes in leaves"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, out.Source)
	assert.Equal(t, "monocrotophos", out.Trigger)
	assert.Equal(t, CategoryBanned, out.Category)
	assert.Equal(t, fallbackResult(PartLeaf), out.Result)
	assert.NotContains(t, out.Result.Treatment, "spray monocrotophos 2ml/l")
}

func TestDiagnoser_FencedResponse(t *testing.T) {
	fenced := "Here you go:\n```json\n" + cleanLeafDiagnosis + "\n```\nStay safe!"
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fenced)})
	d := NewDiagnoser(mock, DefaultDiagnoserConfig())

	out, err := d.Run(context.Background(), SymptomReport{Symptoms: "leaf spots"})
	require.NoError(t, err)
	assert.Equal(t, SourceModel, out.Source)
	assert.Equal(t, "Leaf spot", out.Result.Disease)
}

func TestDiagnoser_MalformedModelOutputIsFatal(t *testing.T) {
	tests := map[string]string{
		"not json":        "use pesticides carefully",
		"missing fields":  `{"disease":"Leaf spot"}`,
		"wrong type":      `{"disease":"x","severity":"Low","description":"d","cause":"c","treatment":"spray"}`,
		"no treatment":    `{"disease":"x","severity":"Low","description":"d","cause":"c","treatment":[]}`,
		"extra top field": `{"disease":"x","severity":"Low","description":"d","cause":"c","treatment":["a"],"crop":"rice"}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(raw)})
			rec := &fakeRecorder{}
			d := NewDiagnoser(mock, DefaultDiagnoserConfig(), WithRecorder(rec))

			out, err := d.Run(context.Background(), SymptomReport{Symptoms: "leaf spots"})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, ErrMalformedDiagnosis)
			assert.Equal(t, 1, mock.CallCount())

			ev := rec.last(t)
			assert.Equal(t, "model", ev.Source)
			assert.Empty(t, ev.Disease)
		})
	}
}

func TestDiagnoser_RecorderFailureDoesNotFailRequest(t *testing.T) {
	mock := llm.NewMockProvider()
	rec := &fakeRecorder{err: errors.New("disk full")}
	d := NewDiagnoser(mock, DefaultDiagnoserConfig(), WithRecorder(rec))

	res, err := d.Diagnose(context.Background(), SymptomReport{Symptoms: ""})
	require.NoError(t, err)
	assert.Equal(t, fallbackResult(PartUnknown), res)
}

func TestDiagnoser_CustomFilter(t *testing.T) {
	p := DefaultPolicy()
	p.Mode = ModeAllowlist
	f, err := NewFilter(p)
	require.NoError(t, err)

	raw := `{"disease":"Leaf spot","severity":"Low","description":"d","cause":"c","treatment":["Remove affected leaves"]}`
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(raw)})
	d := NewDiagnoser(mock, DefaultDiagnoserConfig(), WithFilter(f))

	out, err := d.Run(context.Background(), SymptomReport{Symptoms: "leaf spots"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, out.Source)
	assert.Equal(t, TriggerNoSafeSubstance, out.Trigger)
}

func TestDiagnoser_ConcurrentRequests(t *testing.T) {
	mock := llm.NewMockProvider()
	for i := 0; i < 16; i++ {
		mock.AddResponse(llm.MockResponse{Content: json.RawMessage(cleanLeafDiagnosis)})
	}
	d := NewDiagnoser(mock, DefaultDiagnoserConfig())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := d.Run(context.Background(), SymptomReport{Symptoms: "leaf spots"})
			assert.NoError(t, err)
			if out != nil {
				assert.Equal(t, SourceModel, out.Source)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, mock.CallCount())
}

func TestDiagnoserConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultDiagnoserConfig().Validate())

	cfg := DefaultDiagnoserConfig()
	cfg.Temperature = 0.9
	assert.Error(t, cfg.Validate())

	cfg = DefaultDiagnoserConfig()
	cfg.Timeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestDiagnoserConfigFromEnv(t *testing.T) {
	t.Setenv("EDUFARMA_LLM_TEMPERATURE", "0.25")
	t.Setenv("EDUFARMA_LLM_MAX_TOKENS", "600")
	t.Setenv("EDUFARMA_DIAGNOSIS_TIMEOUT", "5s")

	cfg, err := DiagnoserConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DiagnoserConfig{MaxTokens: 600, Temperature: 0.25, Timeout: 5 * time.Second}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestDiagnoserConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("EDUFARMA_LLM_TEMPERATURE", "")
	t.Setenv("EDUFARMA_LLM_MAX_TOKENS", "")
	t.Setenv("EDUFARMA_DIAGNOSIS_TIMEOUT", "")

	cfg, err := DiagnoserConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultDiagnoserConfig(), cfg)
}

func TestDiagnoserConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("EDUFARMA_LLM_TEMPERATURE", "warm")
	_, err := DiagnoserConfigFromEnv()
	assert.ErrorContains(t, err, "EDUFARMA_LLM_TEMPERATURE")

	t.Setenv("EDUFARMA_LLM_TEMPERATURE", "0.9")
	cfg, err := DiagnoserConfigFromEnv()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageHindi, ParseLanguage("hi"))
	assert.Equal(t, LanguageHindi, ParseLanguage(" HI "))
	assert.Equal(t, LanguageEnglish, ParseLanguage("en"))
	assert.Equal(t, LanguageEnglish, ParseLanguage("fr"))
	assert.Equal(t, LanguageEnglish, ParseLanguage(""))
}

func TestRequestIDFrom_GeneratesWhenMissing(t *testing.T) {
	a := RequestIDFrom(context.Background())
	b := RequestIDFrom(context.Background())
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON(`noise {"a":{"b":2}} trailing`))
	assert.Equal(t, "plain text", extractJSON("  plain text  "))
	assert.Equal(t, "", extractJSON("```\n```"))
}
