package transport

import "fmt"

// Canonical endpoint map. Earlier revisions of the dashboard shipped two
// divergent path configurations; this set is the one the backend serves.
const (
	EpLogin          = "/api/auth/login/"
	EpLogout         = "/api/auth/logout/"
	EpProfile        = "/api/auth/profile/"
	EpChangePassword = "/api/auth/change-password/"
	EpUsers          = "/api/auth/users/"
	EpFarmers        = "/api/auth/users/farmers/"

	EpFarms = "/api/farm/farms/"
	EpCoops = "/api/farm/coops/"

	EpSensorReadings = "/api/sensors/sensor-reading/"
	EpHealthLatest   = "/api/sensors/poo-health-latest/"

	EpAlerts = "/api/alerts/"

	EpDevices = "/api/farm/edge-devices/"
)

// EpFarmDetail returns the detail path for a farm.
func EpFarmDetail(id int64) string { return fmt.Sprintf("%s%d/", EpFarms, id) }

// EpAlertDetail returns the detail path for an alert (used for DELETE).
func EpAlertDetail(id int64) string { return fmt.Sprintf("%s%d/", EpAlerts, id) }

// EpAlertResolve returns the resolve action path for an alert.
func EpAlertResolve(id int64) string { return fmt.Sprintf("%s%d/resolve/", EpAlerts, id) }

// EpDeviceDetail returns the detail path for an edge device.
func EpDeviceDetail(id int64) string { return fmt.Sprintf("%s%d/", EpDevices, id) }
