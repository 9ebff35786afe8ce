// Package normalize turns heterogeneous API payloads into the canonical
// in-memory representations. Every list normalizer accepts a paginated
// envelope, a bare array, or garbage, and returns a list (possibly
// empty) without ever failing; unparseable elements are skipped.
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"farmwatch/internal/model"
	"farmwatch/internal/transport"
)

// flexTime tolerates the timestamp shapes the backend actually emits:
// RFC3339 with or without fractional seconds, null, empty string.
type flexTime struct{ time.Time }

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// null or a non-string; leave zero
		return nil
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

type wireUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Role      string `json:"role"`
}

// Users normalizes a user listing payload.
func Users(raw json.RawMessage) []model.User {
	items := transport.DecodeList(raw)
	out := make([]model.User, 0, len(items))
	for _, item := range items {
		var w wireUser
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		out = append(out, model.User{
			ID:        w.ID,
			FirstName: w.FirstName,
			LastName:  w.LastName,
			Email:     w.Email,
			Phone:     w.Phone,
			Role:      w.Role,
		})
	}
	return out
}

type wireFarm struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	TotalCapacity int64  `json:"total_capacity"`
	CoopsCount    int64  `json:"coops_count"`
	IsActive      bool   `json:"is_active"`
	// ownership arrives either as a nested owner object or a bare
	// farmer_id, depending on the serializer
	Owner *struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"owner"`
	FarmerID int64 `json:"farmer_id"`
}

// Farms normalizes a farm listing payload.
func Farms(raw json.RawMessage) []model.Farm {
	items := transport.DecodeList(raw)
	out := make([]model.Farm, 0, len(items))
	for _, item := range items {
		f, ok := Farm(item)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Farm normalizes a single farm object (detail endpoint).
func Farm(raw json.RawMessage) (model.Farm, bool) {
	var w wireFarm
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Farm{}, false
	}
	f := model.Farm{
		ID:            w.ID,
		Name:          w.Name,
		Location:      w.Location,
		TotalCapacity: w.TotalCapacity,
		CoopsCount:    w.CoopsCount,
		IsActive:      w.IsActive,
		OwnerID:       w.FarmerID,
	}
	if w.Owner != nil {
		f.OwnerID = w.Owner.ID
		f.OwnerName = w.Owner.Name
	}
	return f, true
}

type wireCoop struct {
	ID       int64  `json:"id"`
	FarmID   int64  `json:"farm_id"`
	Farm     int64  `json:"farm"` // alternate serializer key
	Name     string `json:"name"`
	Capacity int64  `json:"capacity"`
	Chickens int64  `json:"current_chicken_count"`
}

// Coops normalizes a coop listing payload.
func Coops(raw json.RawMessage) []model.Coop {
	items := transport.DecodeList(raw)
	out := make([]model.Coop, 0, len(items))
	for _, item := range items {
		var w wireCoop
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		c := model.Coop{
			ID:       w.ID,
			FarmID:   w.FarmID,
			Name:     w.Name,
			Capacity: w.Capacity,
			Chickens: w.Chickens,
		}
		if c.FarmID == 0 {
			c.FarmID = w.Farm
		}
		out = append(out, c)
	}
	return out
}

// CoopsForFarm filters coops by strict farm-id equality. A coop the
// backend shipped without a farm id belongs to no farm's view; it is
// never silently assigned.
func CoopsForFarm(coops []model.Coop, farmID int64) []model.Coop {
	out := make([]model.Coop, 0)
	for _, c := range coops {
		if c.FarmID != 0 && c.FarmID == farmID {
			out = append(out, c)
		}
	}
	return out
}

type wireReading struct {
	Coop        int64    `json:"coop"`
	CoopName    string   `json:"coop_name"`
	Timestamp   flexTime `json:"timestamp"`
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	WaterLevel  float64  `json:"water_level"`
	FeedLevel   float64  `json:"feed_level"`
}

// Readings normalizes a sensor-reading listing payload.
func Readings(raw json.RawMessage) []model.SensorReading {
	items := transport.DecodeList(raw)
	out := make([]model.SensorReading, 0, len(items))
	for _, item := range items {
		var w wireReading
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		out = append(out, model.SensorReading{
			CoopID:      w.Coop,
			CoopName:    w.CoopName,
			Timestamp:   w.Timestamp.Time,
			Temperature: w.Temperature,
			Humidity:    w.Humidity,
			WaterLevel:  w.WaterLevel,
			FeedLevel:   w.FeedLevel,
		})
	}
	return out
}

// ReadingsForCoop joins readings to a coop by id or by name, first match
// wins. The dual key is a backend inconsistency the client tolerates,
// not resolves.
func ReadingsForCoop(readings []model.SensorReading, coop model.Coop) []model.SensorReading {
	out := make([]model.SensorReading, 0)
	for _, r := range readings {
		if (r.CoopID != 0 && r.CoopID == coop.ID) || (r.CoopName != "" && r.CoopName == coop.Name) {
			out = append(out, r)
		}
	}
	return out
}

type wireDevice struct {
	ID       int64    `json:"id"`
	Name     string   `json:"device_name"`
	Type     string   `json:"device_type"`
	Status   string   `json:"status"`
	LastSync flexTime `json:"last_sync"`
	FarmName string   `json:"farm_name"`
}

// Devices normalizes an edge-device listing payload. Status values
// outside the known set map to unknown; connectivity is never invented
// client-side.
func Devices(raw json.RawMessage) []model.Device {
	items := transport.DecodeList(raw)
	out := make([]model.Device, 0, len(items))
	for _, item := range items {
		var w wireDevice
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		out = append(out, model.Device{
			ID:       w.ID,
			Name:     w.Name,
			Type:     w.Type,
			Status:   deviceStatus(w.Status),
			LastSync: w.LastSync.Time,
			FarmName: w.FarmName,
		})
	}
	return out
}

func deviceStatus(s string) model.DeviceStatus {
	switch strings.ToLower(s) {
	case "online":
		return model.StatusOnline
	case "error":
		return model.StatusError
	case "offline":
		return model.StatusOffline
	default:
		return model.StatusUnknown
	}
}

type wireHealthCheck struct {
	CoopName  string   `json:"coop_name"`
	Status    string   `json:"status"`
	CheckedAt flexTime `json:"checked_at"`
}

// HealthChecks normalizes a health-check listing payload.
func HealthChecks(raw json.RawMessage) []model.HealthCheck {
	items := transport.DecodeList(raw)
	out := make([]model.HealthCheck, 0, len(items))
	for _, item := range items {
		var w wireHealthCheck
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		out = append(out, model.HealthCheck{
			CoopName:  w.CoopName,
			Status:    w.Status,
			CheckedAt: w.CheckedAt.Time,
		})
	}
	return out
}

// DeviceStats aggregates counts the dashboard's summary cards show.
type DeviceStatsResult struct {
	Total   int
	Online  int
	Error   int
	Offline int
}

// DeviceStats counts devices per reported status.
func DeviceStats(devices []model.Device) DeviceStatsResult {
	var s DeviceStatsResult
	s.Total = len(devices)
	for _, d := range devices {
		switch d.Status {
		case model.StatusOnline:
			s.Online++
		case model.StatusError:
			s.Error++
		case model.StatusOffline:
			s.Offline++
		}
	}
	return s
}

// FarmStatsResult aggregates the farm overview numbers.
type FarmStatsResult struct {
	Farms       int
	ActiveFarms int
	Capacity    int64
	Coops       int64
}

// FarmStats aggregates a farm list.
func FarmStats(farms []model.Farm) FarmStatsResult {
	var s FarmStatsResult
	s.Farms = len(farms)
	for _, f := range farms {
		if f.IsActive {
			s.ActiveFarms++
		}
		s.Capacity += f.TotalCapacity
		s.Coops += f.CoopsCount
	}
	return s
}
