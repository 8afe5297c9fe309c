package diagnosis

import (
	"bytes"
	"strings"
	"text/template"
)

const diagnosisSystemPrompt = `You are an agricultural extension expert helping small farmers in India. Diagnose the crop problem the farmer describes.

Rules:
- Never recommend banned or highly hazardous chemicals (for example monocrotophos, endosulfan, phorate, carbofuran, methyl parathion).
- Do not guess a pest species or genus when the crop is not named. Describe the problem generically.
- Follow integrated pest management: cultural control first, then biological or organic control, chemical control only if clearly needed, then safety precautions.
- Give doses only as ml/L or g/L.
- Biological agents such as Bt, Trichoderma or Neem oil are not chemical control.
- Do not give fertilizer doses as pest or disease treatment.
- Use very simple words a farmer can follow.
- Reply with the JSON object only. No text before or after it.`

var diagnosisUserTemplate = template.Must(template.New("diagnosis").Parse(`Symptoms described by the farmer:
"{{.Symptoms}}"

Write every value in {{.LanguageName}}.

Respond ONLY with valid JSON with exactly these fields in this order:
{
  "disease": "",
  "severity": "",
  "description": "",
  "cause": "",
  "treatment": []
}`))

type promptData struct {
	Symptoms     string
	LanguageName string
}

func buildDiagnosisMessage(report SymptomReport) (string, error) {
	var buf bytes.Buffer
	err := diagnosisUserTemplate.Execute(&buf, promptData{
		Symptoms:     report.Symptoms,
		LanguageName: report.Language.Name(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractJSON strips markdown code fences and returns the outermost JSON
// object in text. Text without an object is returned trimmed.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
