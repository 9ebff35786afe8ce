package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"farmwatch/internal/model"
	"farmwatch/internal/transport"
)

// Display status labels. The severity-to-label mapping is total: every
// input maps to exactly one label.
const (
	LabelResolved = "Resolved"
	LabelCritical = "Critical"
	LabelWarning  = "Warning"
	LabelMedium   = "Medium"
)

// ValueUnavailable is the sentinel shown when a message carries no
// numeric reading.
const ValueUnavailable = "N/A"

type wireAlert struct {
	ID         int64    `json:"id"`
	CoopName   string   `json:"coop_name"`
	AlertType  string   `json:"alert_type"`
	Severity   string   `json:"severity"`
	Message    string   `json:"message"`
	IsResolved bool     `json:"is_resolved"`
	CreatedAt  flexTime `json:"created_at"`
}

// Alerts normalizes an alert listing payload and attaches the derived
// display fields.
func Alerts(raw json.RawMessage) []model.Alert {
	items := transport.DecodeList(raw)
	out := make([]model.Alert, 0, len(items))
	for _, item := range items {
		var w wireAlert
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		a := model.Alert{
			ID:         w.ID,
			CoopName:   w.CoopName,
			AlertType:  w.AlertType,
			Severity:   model.Severity(strings.ToLower(w.Severity)),
			Message:    w.Message,
			IsResolved: w.IsResolved,
			CreatedAt:  w.CreatedAt.Time,
		}
		a.Info = DeriveAlertInfo(a)
		out = append(out, a)
	}
	return out
}

// DeriveAlertInfo computes the display-only fields from the alert type
// and message. Deterministic; never serialized back to the API.
func DeriveAlertInfo(a model.Alert) model.AlertInfo {
	return model.AlertInfo{
		StatusLabel:     StatusLabel(a.Severity, a.IsResolved),
		Value:           ExtractValue(a.Message),
		Unit:            Unit(a.AlertType),
		Impact:          Impact(a.AlertType),
		Recommendations: Recommendations(a.AlertType),
	}
}

// StatusLabel maps severity and resolution onto a user-facing label.
// Resolved wins regardless of severity; unknown or unset severities
// land on Medium.
func StatusLabel(sev model.Severity, resolved bool) string {
	if resolved {
		return LabelResolved
	}
	switch sev {
	case model.SeverityHigh:
		return LabelCritical
	case model.SeverityLow:
		return LabelWarning
	default:
		return LabelMedium
	}
}

var valueRe = regexp.MustCompile(`\d+(\.\d+)?`)

// ExtractValue returns the first decimal-or-integer substring of the
// message, or the unavailable sentinel.
func ExtractValue(message string) string {
	if m := valueRe.FindString(message); m != "" {
		return m
	}
	return ValueUnavailable
}

// alertCategory buckets an alert type by substring match on its
// lowercased form.
func alertCategory(alertType string) string {
	t := strings.ToLower(alertType)
	switch {
	case strings.Contains(t, "temp"):
		return "temp"
	case strings.Contains(t, "hum"):
		return "humidity"
	case strings.Contains(t, "water"):
		return "water"
	case strings.Contains(t, "feed"):
		return "feed"
	case strings.Contains(t, "co2"):
		return "co2"
	default:
		return ""
	}
}

// Unit infers the measurement unit from the alert type.
func Unit(alertType string) string {
	switch alertCategory(alertType) {
	case "temp":
		return "°C"
	case "humidity", "water", "feed":
		return "%"
	case "co2":
		return "ppm"
	default:
		return ""
	}
}

var impactByCategory = map[string]string{
	"temp":     "Heat or cold stress reduces feed intake and can raise flock mortality within hours.",
	"water":    "Low water availability causes dehydration and a rapid drop in egg production.",
	"feed":     "An empty feed line leads to uneven growth and aggressive pecking behaviour.",
	"humidity": "Humidity outside the target band promotes ammonia build-up and respiratory disease.",
}

const genericImpact = "Abnormal readings can degrade flock health if they persist."

// Impact returns the impact text for the alert's category, with a
// generic fallback for unmatched categories.
func Impact(alertType string) string {
	if s, ok := impactByCategory[alertCategory(alertType)]; ok {
		return s
	}
	return genericImpact
}

var recommendationsByCategory = map[string][]string{
	"temp": {
		"Check ventilation fans and air inlets.",
		"Verify heater and cooling pad operation.",
		"Confirm the sensor is not in direct sunlight or draft.",
	},
	"water": {
		"Inspect the water line and nipple drinkers for blockage.",
		"Check the supply tank level and refill pump.",
	},
	"feed": {
		"Check the feed auger and hopper for bridging.",
		"Schedule a refill delivery if silo stock is low.",
	},
	"humidity": {
		"Increase ventilation rate.",
		"Check litter moisture and water line leaks.",
	},
}

var genericRecommendations = []string{
	"Inspect the coop and verify the sensor reading on site.",
}

// Recommendations returns the operator checklist for the alert's
// category, with a generic fallback.
func Recommendations(alertType string) []string {
	if r, ok := recommendationsByCategory[alertCategory(alertType)]; ok {
		return r
	}
	return genericRecommendations
}
