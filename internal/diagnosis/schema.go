package diagnosis

import "github.com/edufarma/edufarma/internal/llm"

// DiagnosisSchema defines the JSON schema for crop diagnosis responses.
var DiagnosisSchema = &llm.Schema{
	Name:        "crop-diagnosis",
	Description: "Generic crop problem diagnosis with IPM-first treatment steps",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"disease": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Short generic name of the problem, never a pest species",
			},
			"severity": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Low, Moderate or High",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Observable symptoms in simple words",
			},
			"cause": map[string]any{
				"type":        "string",
				"description": "Likely cause in simple words",
			},
			"treatment": map[string]any{
				"type":        "array",
				"minItems":    1,
				"items":       map[string]any{"type": "string"},
				"description": "Ordered steps: cultural, biological or organic, chemical only if needed, safety precautions",
			},
		},
		"required":             []any{"disease", "severity", "description", "cause", "treatment"},
		"additionalProperties": false,
	},
}
