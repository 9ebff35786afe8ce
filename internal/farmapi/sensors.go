package farmapi

import (
	"context"

	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/transport"
)

// SensorAPI reads sensor data. Readings are append-only on the backend;
// the client only reads and aggregates.
type SensorAPI struct {
	api Doer
}

// NewSensorAPI constructs a SensorAPI.
func NewSensorAPI(api Doer) *SensorAPI { return &SensorAPI{api: api} }

// Readings fetches the reading history across all coops. Per-coop views
// are derived with normalize.ReadingsForCoop.
func (s *SensorAPI) Readings(ctx context.Context) ([]model.SensorReading, error) {
	raw, err := s.api.Get(ctx, transport.EpSensorReadings)
	if err != nil {
		return nil, err
	}
	return normalize.Readings(raw), nil
}

// HealthChecks fetches the latest health-check results.
func (s *SensorAPI) HealthChecks(ctx context.Context) ([]model.HealthCheck, error) {
	raw, err := s.api.Get(ctx, transport.EpHealthLatest)
	if err != nil {
		return nil, err
	}
	return normalize.HealthChecks(raw), nil
}
