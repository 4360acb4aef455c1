package advisor

import (
	"fmt"
	"strings"

	"github.com/cementlab/plantpulse/internal/plant"
)

const defaultSystemPrompt = `You are a process engineer assistant for a cement plant control room.
Answer concisely, reference the plant data you are given, and list concrete
recommendations as dashed bullet points.`

var objectiveFraming = map[Objective]string{
	ObjectiveEnergy:         "Focus on reducing specific energy consumption (kWh/t) without losing clinker quality. Consider kiln fuel mix, mill loading and waste heat recovery.",
	ObjectiveQuality:        "Focus on cement quality: 28-day strength, Blaine fineness stability and setting times. Flag any composition drift.",
	ObjectiveSustainability: "Focus on emissions and resource use: CO2 per tonne, NOx/SO2/dust against permit limits, alternative fuel substitution and water use.",
	ObjectiveThroughput:     "Focus on production rate against target while keeping the kiln and mills inside safe operating envelopes.",
}

// contextSections renders the snapshot sections included in a prompt and
// returns the rendered text plus the section names for context_used.
func contextSections(snap *plant.DashboardSnapshot) (string, []string) {
	if snap == nil {
		return "", nil
	}

	var b strings.Builder
	used := []string{"process", "quality", "environmental", "overview"}

	fmt.Fprintf(&b, "Current plant state (snapshot %s, source %s):\n", snap.ID, snap.Source)
	fmt.Fprintf(&b, "Process: kiln %.1f°C, clinker %.1f°C, kiln speed %.2f rpm, production %.1f t/h, raw meal %.1f t/h, energy %.1f kWh/t, fuel substitution %.1f%%, fineness %.0f cm²/g\n",
		snap.Process.KilnTemperature, snap.Process.ClinkerTemperature, snap.Process.KilnSpeed,
		snap.Process.ProductionRate, snap.Process.RawMealFlow, snap.Process.EnergyConsumption,
		snap.Process.FuelSubstitution, snap.Process.CementFineness)
	fmt.Fprintf(&b, "Quality: score %.1f, 3d %.1f MPa, 28d %.1f MPa, Blaine %.0f cm²/g, defects %d\n",
		snap.Quality.QualityScore, snap.Quality.Strength3Day, snap.Quality.Strength28Day,
		snap.Quality.Fineness, snap.Quality.DefectCount)
	fmt.Fprintf(&b, "Environment: CO2 %.0f kg/t, NOx %.0f mg/Nm³, dust %.1f mg/Nm³, heat recovery %.0f kW\n",
		snap.Environmental.CO2Emissions, snap.Environmental.NOxEmissions,
		snap.Environmental.DustEmissions, snap.Environmental.HeatRecovery)
	fmt.Fprintf(&b, "Overview: efficiency %.1f%%, production %.1f/%.1f t/h, %d/%d units running, %d active alerts, emission compliant: %t\n",
		snap.Overview.OverallEfficiency, snap.Overview.CurrentProduction, snap.Overview.TargetProduction,
		snap.Overview.RunningEquipment, snap.Overview.TotalEquipment, snap.Overview.ActiveAlerts,
		snap.Overview.EmissionCompliant)

	return b.String(), used
}

func buildChatPrompt(systemPrompt, question, plantContext string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	if plantContext != "" {
		b.WriteString(plantContext)
		b.WriteString("\n")
	}
	b.WriteString("Operator question: ")
	b.WriteString(question)
	return b.String()
}

func buildFluctuationPrompt(systemPrompt string, flucts []Fluctuation, plantContext string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(plantContext)
	b.WriteString("\nDetected parameter fluctuations:\n")
	for _, f := range flucts {
		fmt.Fprintf(&b, "- %s: expected %.2f, actual %.2f (deviation %.1f%%)\n",
			f.Parameter, f.Expected, f.Actual, f.Deviation)
	}
	b.WriteString("Explain the likely root causes and how to stabilize each parameter.")
	return b.String()
}

func buildTrendPrompt(systemPrompt string, trends []TrendSeries, plantContext string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(plantContext)
	b.WriteString("\nHistorical trends:\n")
	for _, t := range trends {
		fmt.Fprintf(&b, "- %s over the last %.0f hours: %s\n", t.Metric, t.PeriodHours, formatSeries(t.Values))
	}
	b.WriteString("Describe where each metric is heading and whether intervention is needed.")
	return b.String()
}

func buildOptimizePrompt(systemPrompt string, objective Objective, plantContext string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(plantContext)
	b.WriteString("\nOptimization objective: ")
	b.WriteString(string(objective))
	b.WriteString("\n")
	b.WriteString(objectiveFraming[objective])
	b.WriteString("\nPropose the three highest-impact adjustments.")
	return b.String()
}

func formatSeries(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.1f", v)
	}
	return strings.Join(parts, ", ")
}
