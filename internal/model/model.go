// Package model defines the canonical entities the client consumes,
// independent of the wire payload shapes they were decoded from.
package model

import "time"

// Role classifies the authenticated user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleFarmer   Role = "farmer"
	RoleCustomer Role = "customer"
)

// ParseRole maps a backend role string to a Role, defaulting to the
// least-privileged role for unknown values.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "farmer":
		return RoleFarmer
	default:
		return RoleCustomer
	}
}

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry as observed in the JWT (diagnostics only)
}

// Session is the authenticated identity. A non-nil Session always carries
// an access token; validity is never verified locally, only invalidated
// reactively when the backend answers 401.
type Session struct {
	UserID      int64
	DisplayName string
	Email       string
	Role        Role
	Tokens      Tokens
}

// User is a backend account as listed by the users endpoints.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Role      string `json:"role"`
}

// DisplayName returns "First Last", falling back to the email.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Farm is a managed farm. Created via form submission, read via list
// fetch, never mutated locally except through a post-create re-fetch.
type Farm struct {
	ID            int64
	Name          string
	Location      string
	TotalCapacity int64
	CoopsCount    int64
	IsActive      bool
	OwnerID       int64
	OwnerName     string
}

// Coop is a chicken coop belonging to exactly one farm (by FarmID; a
// foreign-key relation, not containment).
type Coop struct {
	ID       int64
	FarmID   int64
	Name     string
	Capacity int64
	Chickens int64
}

// SensorReading is an immutable measurement. The backend is inconsistent
/// about how readings reference coops: some rows carry the coop id, some
// only the coop name, so both join keys are kept.
type SensorReading struct {
	CoopID      int64
	CoopName    string
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
	WaterLevel  float64
	FeedLevel   float64
}

// Severity is the backend-supplied alert urgency.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is a raised anomaly. IsResolved is the only mutable field and
// transitions false->true exactly once; there is no unresolve.
type Alert struct {
	ID         int64
	CoopName   string
	AlertType  string
	Severity   Severity
	Message    string
	IsResolved bool
	CreatedAt  time.Time

	// Info carries display-only derivations and is never sent back.
	Info AlertInfo
}

// AlertInfo is computed deterministically from AlertType/Message by the
// normalizer.
type AlertInfo struct {
	StatusLabel     string
	Value           string // first numeric substring of the message, or "N/A"
	Unit            string
	Impact          string
	Recommendations []string
}

// DeviceStatus is the reported edge-device connectivity state. Anything
// the backend does not report explicitly is unknown, never synthesized.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusError   DeviceStatus = "error"
	StatusOffline DeviceStatus = "offline"
	StatusUnknown DeviceStatus = "unknown"
)

// Device is an edge device, read-only from the client's perspective.
type Device struct {
	ID       int64
	Name     string
	Type     string
	Status   DeviceStatus
	LastSync time.Time
	FarmName string
}

// HealthCheck is a camera/health probe result from the sensors API.
type HealthCheck struct {
	CoopName  string
	Status    string
	CheckedAt time.Time
}

// FarmDraft is the client-side input for creating a farm. OwnerID is
// required for admins and must be zero for everyone else (the backend
// assigns ownership from the request user).
type FarmDraft struct {
	Name          string
	Location      string
	TotalCapacity int64
	OwnerID       int64
}

// CoopDraft is the client-side input for creating a coop.
type CoopDraft struct {
	FarmID   int64
	Name     string
	Capacity int64
}
