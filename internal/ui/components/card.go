package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/edufarma/edufarma/internal/diagnosis"
	"github.com/edufarma/edufarma/internal/ui/theme"
	"github.com/edufarma/edufarma/internal/weather"
)

// minCardWidth keeps treatment steps readable on narrow terminals.
const minCardWidth = 40

// DiagnosisCard renders a diagnosis in a rounded card of the given width.
// A non-empty trigger is shown under the fallback badge.
func DiagnosisCard(d diagnosis.DiagnosisResult, source diagnosis.Source, trigger string, width int) string {
	if width < minCardWidth {
		width = minCardWidth
	}
	inner := width - 6

	var b strings.Builder
	b.WriteString(theme.Title.Render(d.Disease))
	b.WriteString("  ")
	b.WriteString(sourceBadge(source))
	if trigger != "" {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("safety check: " + trigger))
	}
	b.WriteString("\n\n")

	b.WriteString(field("Severity", d.Severity, inner))
	b.WriteString(field("Description", d.Description, inner))
	b.WriteString(field("Cause", d.Cause, inner))

	b.WriteString(theme.Label.Render("Treatment"))
	for i, step := range d.Treatment {
		b.WriteString("\n")
		b.WriteString(theme.Body.Width(inner).Render(fmt.Sprintf("%d. %s", i+1, step)))
	}

	return theme.Card.Width(width).Render(b.String())
}

// WeatherCard renders a weather report with its advisories.
func WeatherCard(r weather.Report, width int) string {
	if width < minCardWidth {
		width = minCardWidth
	}
	inner := width - 6

	var b strings.Builder
	b.WriteString(theme.Title.Render(r.Location))
	b.WriteString("\n\n")
	b.WriteString(field("Now", conditionsLine(r.Current), inner))

	if len(r.Daily) > 0 {
		b.WriteString(theme.Label.Render("Forecast"))
		for _, d := range r.Daily {
			b.WriteString("\n")
			line := d.Time.Local().Format("Mon 02 Jan") + "  " + conditionsLine(d)
			b.WriteString(theme.Body.Width(inner).Render(line))
		}
		b.WriteString("\n")
	}

	for _, a := range r.Alerts {
		b.WriteString("\n")
		b.WriteString(theme.AlertBadge.Render(a.Title))
		b.WriteString("  ")
		b.WriteString(theme.Body.Render(a.Message))
	}

	return theme.Card.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func sourceBadge(source diagnosis.Source) string {
	if source == diagnosis.SourceFallback {
		return theme.FallbackBadge.Render("[safe fallback]")
	}
	return theme.ModelBadge.Render("[AI]")
}

func field(label, value string, width int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.Label.Render(label),
		theme.Body.Width(width).Render(value),
	) + "\n\n"
}

func conditionsLine(c weather.Conditions) string {
	desc := c.Description
	if desc == "" {
		desc = c.Condition
	}
	return fmt.Sprintf("%.1f°C, %d%% humidity, wind %.1f m/s, %s", c.TempC, c.Humidity, c.WindSpeed, desc)
}
