package farmapi

import (
	"context"
	"fmt"

	"farmwatch/internal/errs"
	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/transport"
)

// FarmAPI lists and creates farms and coops.
type FarmAPI struct {
	api Doer
}

// NewFarmAPI constructs a FarmAPI.
func NewFarmAPI(api Doer) *FarmAPI { return &FarmAPI{api: api} }

// Farms fetches the farm list.
func (f *FarmAPI) Farms(ctx context.Context) ([]model.Farm, error) {
	raw, err := f.api.Get(ctx, transport.EpFarms)
	if err != nil {
		return nil, err
	}
	return normalize.Farms(raw), nil
}

// Farm fetches one farm by id.
func (f *FarmAPI) Farm(ctx context.Context, id int64) (model.Farm, error) {
	raw, err := f.api.Get(ctx, transport.EpFarmDetail(id))
	if err != nil {
		return model.Farm{}, err
	}
	farm, ok := normalize.Farm(raw)
	if !ok {
		return model.Farm{}, fmt.Errorf("farm %d: %w", id, errs.ErrNotFound)
	}
	return farm, nil
}

type farmPayload struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	TotalCapacity int64  `json:"total_capacity"`
	FarmerID      int64  `json:"farmer_id,omitempty"`
}

// CreateFarm submits a farm draft. A zero OwnerID is omitted from the
// payload so the backend assigns ownership from the request user.
func (f *FarmAPI) CreateFarm(ctx context.Context, d model.FarmDraft) error {
	_, err := f.api.Post(ctx, transport.EpFarms, farmPayload{
		Name:          d.Name,
		Location:      d.Location,
		TotalCapacity: d.TotalCapacity,
		FarmerID:      d.OwnerID,
	})
	return err
}

// Coops fetches the full coop list. Per-farm views are always derived
// from this by farm-id filtering, never partially patched.
func (f *FarmAPI) Coops(ctx context.Context) ([]model.Coop, error) {
	raw, err := f.api.Get(ctx, transport.EpCoops)
	if err != nil {
		return nil, err
	}
	return normalize.Coops(raw), nil
}

type coopPayload struct {
	FarmID   int64  `json:"farm_id"`
	Name     string `json:"name"`
	Capacity int64  `json:"capacity"`
}

// CreateCoop submits a coop draft.
func (f *FarmAPI) CreateCoop(ctx context.Context, d model.CoopDraft) error {
	_, err := f.api.Post(ctx, transport.EpCoops, coopPayload{
		FarmID:   d.FarmID,
		Name:     d.Name,
		Capacity: d.Capacity,
	})
	return err
}
