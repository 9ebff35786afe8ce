package normalize

import (
	"encoding/json"
	"testing"

	"farmwatch/internal/model"
)

func TestFarms_EnvelopeAndOwnerShapes(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`{"results":[
		{"id":9,"name":"Sunrise","location":"North","total_capacity":1200,"coops_count":4,"is_active":true,"owner":{"id":3,"name":"Ana Petrova"}},
		{"id":10,"name":"Hillside","location":"East","total_capacity":500,"coops_count":1,"is_active":false,"farmer_id":7}
	]}`)
	farms := Farms(raw)
	if len(farms) != 2 {
		t.Fatalf("want 2 farms, got %d", len(farms))
	}
	if farms[0].OwnerID != 3 || farms[0].OwnerName != "Ana Petrova" {
		t.Fatalf("nested owner not decoded: %+v", farms[0])
	}
	if farms[1].OwnerID != 7 || farms[1].OwnerName != "" {
		t.Fatalf("farmer_id fallback not decoded: %+v", farms[1])
	}
}

func TestCoopsForFarm(t *testing.T) {
	t.Parallel()
	coops := []model.Coop{
		{ID: 1, FarmID: 9},
		{ID: 2, FarmID: 10},
		{ID: 3}, // no farm id: excluded from every farm's view
	}
	got := CoopsForFarm(coops, 9)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("want exactly coop 1, got %+v", got)
	}
	if len(CoopsForFarm(coops, 999)) != 0 {
		t.Fatalf("unknown farm must get an empty view")
	}
}

func TestCoops_AlternateFarmKey(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`[{"id":1,"farm":9,"name":"A","capacity":100},{"id":2,"farm_id":10,"name":"B","capacity":50}]`)
	coops := Coops(raw)
	if len(coops) != 2 || coops[0].FarmID != 9 || coops[1].FarmID != 10 {
		t.Fatalf("farm key tolerance broken: %+v", coops)
	}
}

func TestReadingsForCoop_DualKey(t *testing.T) {
	t.Parallel()
	coop := model.Coop{ID: 5, Name: "Coop A"}
	readings := []model.SensorReading{
		{CoopID: 5},                 // id match
		{CoopName: "Coop A"},        // name match
		{CoopID: 6},                 // other coop
		{CoopName: "Coop B"},        // other coop
		{CoopID: 6, CoopName: "Coop A"}, // id differs but name matches: first match wins
	}
	got := ReadingsForCoop(readings, coop)
	if len(got) != 3 {
		t.Fatalf("want 3 readings, got %d: %+v", len(got), got)
	}
}

func TestDevices_StatusMapping(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`[
		{"id":1,"device_name":"cam-1","device_type":"camera","status":"online","last_sync":"2026-03-01T10:00:00Z","farm_name":"Sunrise"},
		{"id":2,"device_name":"th-2","device_type":"sensor","status":"error"},
		{"id":3,"device_name":"th-3","device_type":"sensor","status":"offline"},
		{"id":4,"device_name":"th-4","device_type":"sensor","status":"sleeping"},
		{"id":5,"device_name":"th-5","device_type":"sensor","last_sync":null}
	]`)
	devices := Devices(raw)
	if len(devices) != 5 {
		t.Fatalf("want 5 devices, got %d", len(devices))
	}
	want := []model.DeviceStatus{
		model.StatusOnline, model.StatusError, model.StatusOffline,
		model.StatusUnknown, model.StatusUnknown,
	}
	for i, d := range devices {
		if d.Status != want[i] {
			t.Fatalf("device %d status = %q, want %q", i, d.Status, want[i])
		}
	}
	stats := DeviceStats(devices)
	if stats.Total != 5 || stats.Online != 1 || stats.Error != 1 || stats.Offline != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFarmStats(t *testing.T) {
	t.Parallel()
	stats := FarmStats([]model.Farm{
		{IsActive: true, TotalCapacity: 100, CoopsCount: 2},
		{IsActive: false, TotalCapacity: 50, CoopsCount: 1},
	})
	if stats.Farms != 2 || stats.ActiveFarms != 1 || stats.Capacity != 150 || stats.Coops != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNormalizers_MalformedShapes(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{``, `null`, `{}`, `"x"`, `{{{`} {
		if n := len(Farms(json.RawMessage(raw))); n != 0 {
			t.Fatalf("Farms(%q) = %d items", raw, n)
		}
		if n := len(Coops(json.RawMessage(raw))); n != 0 {
			t.Fatalf("Coops(%q) = %d items", raw, n)
		}
		if n := len(Readings(json.RawMessage(raw))); n != 0 {
			t.Fatalf("Readings(%q) = %d items", raw, n)
		}
		if n := len(Devices(json.RawMessage(raw))); n != 0 {
			t.Fatalf("Devices(%q) = %d items", raw, n)
		}
		if n := len(Users(json.RawMessage(raw))); n != 0 {
			t.Fatalf("Users(%q) = %d items", raw, n)
		}
	}
}

func TestFlexTime_Shapes(t *testing.T) {
	t.Parallel()
	var w wireReading
	if err := json.Unmarshal([]byte(`{"timestamp":"2026-03-01T10:00:00.123456Z"}`), &w); err != nil {
		t.Fatalf("fractional seconds: %v", err)
	}
	if w.Timestamp.IsZero() {
		t.Fatalf("fractional timestamp not parsed")
	}
	var w2 wireReading
	if err := json.Unmarshal([]byte(`{"timestamp":null}`), &w2); err != nil {
		t.Fatalf("null timestamp: %v", err)
	}
	if !w2.Timestamp.IsZero() {
		t.Fatalf("null timestamp should stay zero")
	}
}
