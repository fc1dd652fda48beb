// Package sessionstore provides the durable key/value storage used by the
// session store to survive process restarts.
//
// Values are opaque strings. Drivers must make Delete atomic across all given
// keys: logout depends on the persisted token, session id, user, and scopes
// disappearing together.
package sessionstore

import "context"

// KV is the durable string key/value store contract.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes all given keys atomically. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
