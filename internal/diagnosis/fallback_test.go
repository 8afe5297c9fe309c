package diagnosis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edufarma/edufarma/internal/llm"
)

func TestGenerateFallback_Deterministic(t *testing.T) {
	for _, part := range PlantParts {
		t.Run(string(part), func(t *testing.T) {
			assert.Equal(t, GenerateFallback(part), GenerateFallback(part))
			assert.Equal(t, FallbackText(part), FallbackText(part))
		})
	}
}

func TestGenerateFallback_Shape(t *testing.T) {
	for _, part := range PlantParts {
		t.Run(string(part), func(t *testing.T) {
			r := GenerateFallback(part)
			assert.NotEmpty(t, r.Disease)
			assert.NotEmpty(t, r.Description)
			assert.Equal(t, "Moderate", r.Severity)
			assert.NotEmpty(t, r.Cause)
			require.Len(t, r.Treatment, 4)
			assert.True(t, strings.HasPrefix(r.Treatment[0], "Cultural control"))
			assert.True(t, strings.HasPrefix(r.Treatment[1], "Organic or biological control"))
			assert.Contains(t, r.Treatment[1], "Neem oil at 3-5 ml per litre")
			assert.True(t, strings.HasPrefix(r.Treatment[2], "Soil and crop management"))
			assert.True(t, strings.HasPrefix(r.Treatment[3], "Safety precautions"))

			require.NoError(t, llm.ValidateJSON(DiagnosisSchema, json.RawMessage(FallbackText(part))))
		})
	}
}

func TestGenerateFallback_FruitTemplate(t *testing.T) {
	assert.Equal(t, "Fruit-related damage or rot", GenerateFallback(PartFruit).Disease)
}

func TestGenerateFallback_UnlistedPartUsesGeneralTemplate(t *testing.T) {
	assert.Equal(t, GenerateFallback(PartUnknown), GenerateFallback(PlantPart("flower")))
}

func TestGenerateFallback_ReturnsIndependentCopies(t *testing.T) {
	a := GenerateFallback(PartLeaf)
	a.Treatment[0] = "changed"
	assert.NotEqual(t, "changed", GenerateFallback(PartLeaf).Treatment[0])
}

func TestFallbackText_PassesFilterUnchanged(t *testing.T) {
	allow := DefaultPolicy()
	allow.Mode = ModeAllowlist
	allowFilter, err := NewFilter(allow)
	require.NoError(t, err)

	filters := map[string]*Filter{
		"denylist":  DefaultFilter(),
		"allowlist": allowFilter,
	}

	for name, f := range filters {
		for _, part := range PlantParts {
			t.Run(name+"/"+string(part), func(t *testing.T) {
				text := FallbackText(part)
				v := f.Inspect(text, "")
				assert.False(t, v.Fallback, "fallback text tripped rule %q", v.Trigger)
				assert.Equal(t, text, v.Output)
			})
		}
	}
}
