package farmapi

import (
	"context"

	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/transport"
)

// UserAPI lists backend accounts (admin views).
type UserAPI struct {
	api Doer
}

// NewUserAPI constructs a UserAPI.
func NewUserAPI(api Doer) *UserAPI { return &UserAPI{api: api} }

// Users fetches all accounts.
func (u *UserAPI) Users(ctx context.Context) ([]model.User, error) {
	raw, err := u.api.Get(ctx, transport.EpUsers)
	if err != nil {
		return nil, err
	}
	return normalize.Users(raw), nil
}

// Farmers fetches accounts with the farmer role, for owner assignment.
func (u *UserAPI) Farmers(ctx context.Context) ([]model.User, error) {
	raw, err := u.api.Get(ctx, transport.EpFarmers)
	if err != nil {
		return nil, err
	}
	return normalize.Users(raw), nil
}
