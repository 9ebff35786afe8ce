// Package reconcile applies create/resolve/delete mutations against the
// canonical collections: immediate local reflection on success, full
// re-fetch whenever the server owns the outcome (creates, partial batch
// failures).
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"farmwatch/internal/errs"
	"farmwatch/internal/farmapi"
	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
)

// DefaultRemoveDelay is how long a just-resolved alert stays visible in
// the active view before it is removed, so the resolved-state transition
// is perceivable.
const DefaultRemoveDelay = 800 * time.Millisecond

// AlertService is the alert slice of the API surface.
type AlertService interface {
	List(ctx context.Context, f farmapi.AlertFilter) ([]model.Alert, error)
	Resolve(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// FarmService is the farm/coop slice of the API surface.
type FarmService interface {
	Farms(ctx context.Context) ([]model.Farm, error)
	CreateFarm(ctx context.Context, d model.FarmDraft) error
	Coops(ctx context.Context) ([]model.Coop, error)
	CreateCoop(ctx context.Context, d model.CoopDraft) error
}

// Reconciler coordinates mutations and the alert collection.
type Reconciler struct {
	alerts AlertService
	farms  FarmService
	list   *AlertList
	log    *zap.Logger

	// removeDelay is fixed in production; injectable in tests.
	removeDelay time.Duration
}

// New constructs a Reconciler around an existing AlertList.
func New(alerts AlertService, farms FarmService, list *AlertList, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		alerts:      alerts,
		farms:       farms,
		list:        list,
		log:         log,
		removeDelay: DefaultRemoveDelay,
	}
}

// Alerts exposes the canonical alert collection.
func (r *Reconciler) Alerts() *AlertList { return r.list }

func (r *Reconciler) listFilter() farmapi.AlertFilter {
	if r.list.Filter() == FilterActive {
		return farmapi.ActiveOnly()
	}
	return farmapi.AlertFilter{}
}

// Refresh replaces the alert collection with a full fetch honoring the
// filter mode. On failure the last-known-good collection stays intact.
func (r *Reconciler) Refresh(ctx context.Context) error {
	alerts, err := r.alerts.List(ctx, r.listFilter())
	if err != nil {
		return err
	}
	r.list.Replace(alerts)
	return nil
}

// ResolveAlert resolves one alert. On success the in-memory alert is
// marked resolved immediately; under the active filter the row is then
// removed after a short fixed delay, with no additional network fetch.
func (r *Reconciler) ResolveAlert(ctx context.Context, id int64) error {
	if err := r.alerts.Resolve(ctx, id); err != nil {
		return err
	}
	r.list.MarkResolved(id, normalize.LabelResolved)
	if r.list.Filter() == FilterActive {
		time.AfterFunc(r.removeDelay, func() { r.list.RemoveResolved(id) })
	}
	return nil
}

// DeleteAlert deletes one alert and removes it locally on success.
func (r *Reconciler) DeleteAlert(ctx context.Context, id int64) error {
	if err := r.alerts.Delete(ctx, id); err != nil {
		return err
	}
	r.list.Remove(id)
	return nil
}

// ResolveAll resolves every unresolved alert in the current view, one
// concurrent request per alert (no batch endpoint). If any request
// fails, the whole batch is reported failed and the collection is
// re-fetched to resolve partial-success ambiguity.
func (r *Reconciler) ResolveAll(ctx context.Context) error {
	var ids []int64
	for _, a := range r.list.Snapshot() {
		if !a.IsResolved {
			ids = append(ids, a.ID)
		}
	}
	return r.fanOut(ctx, ids, r.alerts.Resolve, func(id int64) {
		r.list.MarkResolved(id, normalize.LabelResolved)
		if r.list.Filter() == FilterActive {
			time.AfterFunc(r.removeDelay, func() { r.list.RemoveResolved(id) })
		}
	})
}

// DeleteAll deletes every alert in the current view, one concurrent
// request per alert, with the same all-or-refetch failure handling.
func (r *Reconciler) DeleteAll(ctx context.Context) error {
	var ids []int64
	for _, a := range r.list.Snapshot() {
		ids = append(ids, a.ID)
	}
	return r.fanOut(ctx, ids, r.alerts.Delete, r.list.Remove)
}

// fanOut issues op per id concurrently. onSuccess is applied per id only
// when the whole batch succeeded; otherwise the client does not try to
// work out which subset went through and re-fetches instead.
func (r *Reconciler) fanOut(ctx context.Context, ids []int64, op func(context.Context, int64) error, onSuccess func(int64)) error {
	if len(ids) == 0 {
		return nil
	}

	failures := make([]error, len(ids))
	wg := &sync.WaitGroup{}
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			failures[i] = op(ctx, id)
		}(i, id)
	}
	wg.Wait()

	failed := 0
	var first error
	for _, err := range failures {
		if err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if failed > 0 {
		r.log.Warn("alert batch partially failed",
			zap.Int("failed", failed),
			zap.Int("total", len(ids)),
		)
		if err := r.Refresh(ctx); err != nil {
			r.log.Warn("post-batch refresh failed", zap.Error(err))
		}
		return fmt.Errorf("batch: %d of %d requests failed: %w", failed, len(ids), first)
	}
	for _, id := range ids {
		onSuccess(id)
	}
	return nil
}

// CreateFarm validates the draft locally, submits it, then re-fetches
// the farm list so server-assigned fields (id, computed counts) win.
// Admins must name an owner; everyone else must not.
func (r *Reconciler) CreateFarm(ctx context.Context, d model.FarmDraft, role model.Role) ([]model.Farm, error) {
	if d.Name == "" || d.Location == "" || d.TotalCapacity <= 0 {
		return nil, fmt.Errorf("%w: name, location and total capacity are required", errs.ErrValidation)
	}
	if role == model.RoleAdmin && d.OwnerID == 0 {
		return nil, fmt.Errorf("%w: an owner must be assigned", errs.ErrValidation)
	}
	if role != model.RoleAdmin {
		// the backend derives ownership from the request user
		d.OwnerID = 0
	}
	if err := r.farms.CreateFarm(ctx, d); err != nil {
		return nil, err
	}
	return r.farms.Farms(ctx)
}

// CreateCoop validates the draft locally, submits it, then re-fetches
// the coop list.
func (r *Reconciler) CreateCoop(ctx context.Context, d model.CoopDraft) ([]model.Coop, error) {
	if d.Name == "" || d.FarmID == 0 || d.Capacity <= 0 {
		return nil, fmt.Errorf("%w: farm, name and capacity are required", errs.ErrValidation)
	}
	if err := r.farms.CreateCoop(ctx, d); err != nil {
		return nil, err
	}
	return r.farms.Coops(ctx)
}
