package farmapi

import (
	"context"
	"encoding/json"
	"fmt"

	"farmwatch/internal/errs"
	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/transport"
)

// DeviceAPI manages edge devices.
type DeviceAPI struct {
	api Doer
}

// NewDeviceAPI constructs a DeviceAPI.
func NewDeviceAPI(api Doer) *DeviceAPI { return &DeviceAPI{api: api} }

// List fetches all edge devices.
func (d *DeviceAPI) List(ctx context.Context) ([]model.Device, error) {
	raw, err := d.api.Get(ctx, transport.EpDevices)
	if err != nil {
		return nil, err
	}
	return normalize.Devices(raw), nil
}

// Get fetches one device. The detail endpoint returns a bare object, so
// it is wrapped as a one-element list for the shared normalizer.
func (d *DeviceAPI) Get(ctx context.Context, id int64) (model.Device, error) {
	raw, err := d.api.Get(ctx, transport.EpDeviceDetail(id))
	if err != nil {
		return model.Device{}, err
	}
	wrapped, _ := json.Marshal([]json.RawMessage{raw})
	devices := normalize.Devices(wrapped)
	if len(devices) == 0 {
		return model.Device{}, fmt.Errorf("device %d: %w", id, errs.ErrNotFound)
	}
	return devices[0], nil
}

// Update patches device fields (name, type).
func (d *DeviceAPI) Update(ctx context.Context, id int64, fields map[string]any) error {
	_, err := d.api.Patch(ctx, transport.EpDeviceDetail(id), fields)
	return err
}

// Delete removes a device.
func (d *DeviceAPI) Delete(ctx context.Context, id int64) error {
	_, err := d.api.Delete(ctx, transport.EpDeviceDetail(id))
	return err
}
