package session

// Option defines a function signature for setting Store options.
type Option func(*Store)

// WithTokenKey sets the durable-storage key for the access token.
// (default: accessToken)
func WithTokenKey(key string) Option {
	return func(s *Store) {
		s.tokenKey = key
	}
}

// WithScopesPath sets the backend path for the permission-scopes listing.
// (default: /roles/scope)
func WithScopesPath(path string) Option {
	return func(s *Store) {
		s.scopesPath = path
	}
}
