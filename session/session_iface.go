package session

import (
	"context"

	"github.com/bontonsoft/hrmscore/api"
)

// Requester is the request-helper surface the Store depends on. *api.Client
// satisfies it.
type Requester interface {
	Get(ctx context.Context, path string, opts *api.RequestOptions) (*api.Response, error)
	Post(ctx context.Context, path string, body any, opts *api.RequestOptions) (*api.Response, error)
}
