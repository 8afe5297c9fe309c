package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/weather"
)

func TestDiagnosisCard(t *testing.T) {
	d := diagnosis.GenerateFallback(diagnosis.PartFruit)
	out := DiagnosisCard(d, diagnosis.SourceFallback, "endosulfan", 100)

	assert.Contains(t, out, d.Disease)
	assert.Contains(t, out, "[safe fallback]")
	assert.Contains(t, out, "safety check: endosulfan")
	assert.Contains(t, out, "Moderate")
	assert.Contains(t, out, "Treatment")
}

func TestDiagnosisCard_ModelSourceHasNoTrigger(t *testing.T) {
	d := diagnosis.DiagnosisResult{Disease: "Early blight", Severity: "Low", Treatment: []string{"Remove leaves"}}
	out := DiagnosisCard(d, diagnosis.SourceModel, "", 10)

	assert.Contains(t, out, "Early blight")
	assert.Contains(t, out, "[AI]")
	assert.NotContains(t, out, "safety check")
}

func TestWeatherCard(t *testing.T) {
	cur := weather.Conditions{Time: time.Now(), TempC: 38, Humidity: 40, Condition: "Rain"}
	r := weather.Report{Location: "Nagpur", Current: cur, Alerts: weather.Alerts(cur)}
	out := WeatherCard(r, 100)

	assert.Contains(t, out, "Nagpur")
	assert.Contains(t, out, "Heat Alert")
	assert.Contains(t, out, "Rain Alert")
}
