package farmapi

import (
	"context"
	"net/url"
	"strconv"

	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/transport"
)

// AlertFilter narrows an alert listing. Nil Resolved means no filter.
type AlertFilter struct {
	Resolved *bool
	Severity model.Severity
}

// ActiveOnly is the filter behind the dashboard's "Active Issues" view.
func ActiveOnly() AlertFilter {
	resolved := false
	return AlertFilter{Resolved: &resolved}
}

func (f AlertFilter) query() string {
	q := url.Values{}
	if f.Resolved != nil {
		q.Set("resolved", strconv.FormatBool(*f.Resolved))
	}
	if f.Severity != "" {
		q.Set("severity", string(f.Severity))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// AlertAPI lists and mutates alerts.
type AlertAPI struct {
	api Doer
}

// NewAlertAPI constructs an AlertAPI.
func NewAlertAPI(api Doer) *AlertAPI { return &AlertAPI{api: api} }

// List fetches alerts matching the filter. Shape surprises yield an
// empty list; transport failures are returned so the caller can keep
// its last-known-good collection.
func (a *AlertAPI) List(ctx context.Context, f AlertFilter) ([]model.Alert, error) {
	raw, err := a.api.Get(ctx, transport.EpAlerts+f.query())
	if err != nil {
		return nil, err
	}
	return normalize.Alerts(raw), nil
}

// Resolve marks one alert resolved on the backend.
func (a *AlertAPI) Resolve(ctx context.Context, id int64) error {
	_, err := a.api.Post(ctx, transport.EpAlertResolve(id), struct{}{})
	return err
}

// Delete removes one alert on the backend.
func (a *AlertAPI) Delete(ctx context.Context, id int64) error {
	_, err := a.api.Delete(ctx, transport.EpAlertDetail(id))
	return err
}

// UnreadCount returns the number of unresolved alerts. There is no
// dedicated count endpoint; the active listing is counted client-side.
func (a *AlertAPI) UnreadCount(ctx context.Context) (int, error) {
	alerts, err := a.List(ctx, ActiveOnly())
	if err != nil {
		return 0, err
	}
	return len(alerts), nil
}
