package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"farmwatch/internal/model"
)

func TestStatusLabel_Total(t *testing.T) {
	t.Parallel()
	cases := []struct {
		sev      model.Severity
		resolved bool
		want     string
	}{
		{model.SeverityHigh, true, LabelResolved},
		{model.SeverityLow, true, LabelResolved},
		{"", true, LabelResolved},
		{model.SeverityHigh, false, LabelCritical},
		{model.SeverityLow, false, LabelWarning},
		{model.SeverityMedium, false, LabelMedium},
		{"", false, LabelMedium},
		{"bogus", false, LabelMedium},
	}
	for _, tc := range cases {
		if got := StatusLabel(tc.sev, tc.resolved); got != tc.want {
			t.Fatalf("StatusLabel(%q, %v) = %q, want %q", tc.sev, tc.resolved, got, tc.want)
		}
	}
}

func TestExtractValue(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Temperature reached 38.5 degrees": "38.5",
		"Water level at 12%":               "12",
		"Sensor offline":                   ValueUnavailable,
		"":                                 ValueUnavailable,
		"reading 7 then 9":                 "7",
	}
	for msg, want := range cases {
		if got := ExtractValue(msg); got != want {
			t.Fatalf("ExtractValue(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestUnit(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"high_temperature": "°C",
		"Temp Spike":       "°C",
		"low_humidity":     "%",
		"water_level_low":  "%",
		"feed_level_low":   "%",
		"co2_buildup":      "ppm",
		"door_open":        "",
	}
	for alertType, want := range cases {
		if got := Unit(alertType); got != want {
			t.Fatalf("Unit(%q) = %q, want %q", alertType, got, want)
		}
	}
}

func TestImpactAndRecommendations_Fallback(t *testing.T) {
	t.Parallel()
	if Impact("door_open") != genericImpact {
		t.Fatalf("unmatched category should get the generic impact")
	}
	if !reflect.DeepEqual(Recommendations("door_open"), genericRecommendations) {
		t.Fatalf("unmatched category should get the generic recommendations")
	}
	// co2 has a unit but no dedicated impact entry
	if Impact("co2_buildup") != genericImpact {
		t.Fatalf("co2 should fall back to the generic impact")
	}
	if Impact("high_temperature") == genericImpact {
		t.Fatalf("temperature should have a dedicated impact")
	}
}

func TestAlerts_ShapesAndDerivation(t *testing.T) {
	t.Parallel()
	envelope := json.RawMessage(`{"results":[
		{"id":1,"coop_name":"Coop A","alert_type":"high_temperature","severity":"high","message":"Temperature reached 38.5 degrees","is_resolved":false,"created_at":"2026-03-01T10:00:00Z"},
		{"id":2,"coop_name":"Coop B","alert_type":"water_level_low","severity":"low","message":"Water level at 12%","is_resolved":true,"created_at":"2026-03-01T11:00:00Z"}
	]}`)

	alerts := Alerts(envelope)
	if len(alerts) != 2 {
		t.Fatalf("want 2 alerts, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Info.StatusLabel != LabelCritical || a.Info.Value != "38.5" || a.Info.Unit != "°C" {
		t.Fatalf("unexpected derivation for alert 1: %+v", a.Info)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("created_at not parsed")
	}

	b := alerts[1]
	if b.Info.StatusLabel != LabelResolved {
		t.Fatalf("resolved alert should be labeled Resolved regardless of severity, got %q", b.Info.StatusLabel)
	}
}

func TestAlerts_NeverFails(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{`null`, `{}`, `"nope"`, `{{{`, ``, `[{"id":"not-a-number"}]`} {
		got := Alerts(json.RawMessage(raw))
		if got == nil {
			got = []model.Alert{}
		}
		_ = got // must not panic; empty is fine
	}
}

func TestAlerts_Idempotent(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`[{"id":1,"alert_type":"low_humidity","severity":"medium","message":"Humidity at 40%","is_resolved":false}]`)
	first := Alerts(raw)
	second := Alerts(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalizing twice must be structurally equal:\n%+v\n%+v", first, second)
	}
}
