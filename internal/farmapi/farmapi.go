// Package farmapi is the typed per-resource surface over the transport
// client. List calls return canonical collections and never fail on
// payload shape surprises; write calls surface typed errors.
package farmapi

import (
	"context"
	"encoding/json"
)

// Doer is the slice of the transport client the resource APIs need.
type Doer interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Patch(ctx context.Context, path string, body any) (json.RawMessage, error)
	Delete(ctx context.Context, path string) (json.RawMessage, error)
}
