// Package session implements the authentication session store and permission
// gate for the HRMS front-end core.
//
// A single Store instance owns the bearer token, the optional session id, the
// discovered user identity, and the permission scopes granted by the backend.
// All updates are applied as atomic groups: no reader ever observes a new
// token alongside stale identity fields. State is persisted through a
// sessionstore.KV so a restarted process resumes the session.
package session

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/bontonsoft/hrmscore/api"
	"github.com/bontonsoft/hrmscore/sessionstore"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
)

const name = "github.com/bontonsoft/hrmscore/session"

const (
	defaultTokenKey   = "accessToken"
	defaultScopesPath = "/roles/scope"

	keySessionID = "sessionId"
	keyUser      = "userDetails"
	keyScopes    = "scopes"
)

// Store owns the authentication lifecycle. Construct one per application with
// New, call Restore once at startup, and share the instance by reference.
type Store struct {
	client     Requester
	kv         sessionstore.KV
	tokenKey   string
	scopesPath string

	mu        sync.RWMutex
	token     string
	sessionID string
	user      User
	scopes    []string
	loading   bool
}

// New creates a Store backed by the given request helper and durable store.
func New(client Requester, kv sessionstore.KV, opts ...Option) *Store {
	s := &Store{
		client:     client,
		kv:         kv,
		tokenKey:   defaultTokenKey,
		scopesPath: defaultScopesPath,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Restore loads any persisted session state and, when a token exists without
// scopes, performs the one-shot scope fetch. It runs once per Store, at
// startup; scope-fetch failures are logged, not returned.
func (s *Store) Restore(ctx context.Context) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Store.Restore()")
	defer span.End()

	token, _, err := s.kv.Get(ctx, s.tokenKey)
	if err != nil {
		return errors.Wrap(err, "sessionstore.KV.Get()")
	}
	sessionID, _, err := s.kv.Get(ctx, keySessionID)
	if err != nil {
		return errors.Wrap(err, "sessionstore.KV.Get()")
	}

	var user User
	if rawUser, ok, err := s.kv.Get(ctx, keyUser); err != nil {
		return errors.Wrap(err, "sessionstore.KV.Get()")
	} else if ok {
		// A corrupt record degrades to no identity, not a failed restore.
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			user = nil
		}
	}

	var scopes []string
	if rawScopes, ok, err := s.kv.Get(ctx, keyScopes); err != nil {
		return errors.Wrap(err, "sessionstore.KV.Get()")
	} else if ok {
		var payload any
		if err := json.Unmarshal([]byte(rawScopes), &payload); err == nil {
			scopes, _ = extractScopes(payload)
		}
	}

	s.mu.Lock()
	s.token = token
	s.sessionID = sessionID
	s.user = user
	if token != "" {
		s.scopes = scopes
	}
	s.mu.Unlock()

	if token != "" && len(scopes) == 0 {
		s.FetchScopes(ctx)
	}

	return nil
}

// Login posts the credentials to the given endpoint and establishes the
// session from the response.
//
// The bearer token is discovered by ordered key rules (top-level fields win
// over the same keys nested under "data"). A response with no token fails
// with *AuthError and creates no session. The token and session id are
// persisted before the scope fetch starts, so a restarted process can never
// observe a token without an eventually consistent scope set.
func (s *Store) Login(ctx context.Context, endpoint string, credentials any) (User, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Store.Login()")
	defer span.End()

	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.client.Post(ctx, endpoint, credentials, nil)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return nil, &AuthError{Reason: "credentials rejected", StatusCode: apiErr.StatusCode, err: err}
		}

		return nil, errors.Wrap(err, "session.Requester.Post()")
	}

	body := resp.Map()

	token, ok := extractString(body, tokenKeys)
	if !ok {
		return nil, &AuthError{Reason: "no token found in login response"}
	}

	sessionID, _ := extractString(body, sessionIDKeys)

	user, found := extractUser(body)
	if !found {
		user = fallbackUser()
	} else {
		user = user.clone()
		if dn := displayName(user); dn != "" {
			user["displayName"] = dn
		}
	}

	if sessionID == "" {
		sessionID = lateSessionID(user, body)
	}

	s.persist(ctx, s.tokenKey, token)
	if sessionID != "" {
		s.persist(ctx, keySessionID, sessionID)
	}
	if rawUser, err := json.Marshal(user); err == nil {
		s.persist(ctx, keyUser, string(rawUser))
	}

	s.mu.Lock()
	s.token = token
	s.sessionID = sessionID
	s.user = user
	s.scopes = nil
	s.mu.Unlock()

	s.FetchScopes(ctx)

	return user.clone(), nil
}

// Logout clears the session. When an endpoint is given the backend is
// notified best-effort; a failed notify is logged and the local session still
// ends. Logout never fails.
func (s *Store) Logout(ctx context.Context, endpoint string) {
	ctx, span := otel.Tracer(name).Start(ctx, "Store.Logout()")
	defer span.End()

	if endpoint != "" {
		if _, err := s.client.Post(ctx, endpoint, struct{}{}, nil); err != nil {
			logger.Ctx(ctx).Error(errors.Wrap(err, "session.Requester.Post()"))
		}
	}

	if err := s.kv.Delete(ctx, s.tokenKey, keySessionID, keyUser, keyScopes); err != nil {
		logger.Ctx(ctx).Error(errors.Wrap(err, "sessionstore.KV.Delete()"))
	}

	s.mu.Lock()
	s.token = ""
	s.sessionID = ""
	s.user = nil
	s.scopes = nil
	s.mu.Unlock()
}

// FetchScopes retrieves the permission scopes for the current token. It is a
// no-op without a token. Unrecognized payload shapes leave current scopes
// unchanged; failures are logged and swallowed so a stale scope set never
// blocks the caller. Concurrent fetches resolve last-write-wins.
func (s *Store) FetchScopes(ctx context.Context) {
	ctx, span := otel.Tracer(name).Start(ctx, "Store.FetchScopes()")
	defer span.End()

	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return
	}

	resp, err := s.client.Get(ctx, s.scopesPath, nil)
	if err != nil {
		logger.Ctx(ctx).Error(errors.Wrap(err, "session.Requester.Get()"))

		return
	}

	s.persist(ctx, keyScopes, string(resp.Body))

	var payload any
	if err := resp.Decode(&payload); err != nil {
		logger.Ctx(ctx).Error(errors.Wrap(err, "api.Response.Decode()"))

		return
	}

	scopes, ok := extractScopes(payload)
	if !ok {
		return
	}

	s.mu.Lock()
	s.scopes = scopes
	s.mu.Unlock()
}

// RefreshScopes forces a scope re-fetch. Used after role permissions are
// edited elsewhere in the system.
func (s *Store) RefreshScopes(ctx context.Context) {
	s.FetchScopes(ctx)
}

// FetchProfile loads the identity record from a profile endpoint. On failure
// the current identity is cleared, matching the session's defensive posture.
func (s *Store) FetchProfile(ctx context.Context, endpoint string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Store.FetchProfile()")
	defer span.End()

	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.client.Get(ctx, endpoint, nil)
	if err != nil {
		if suerr := s.SetUser(ctx, nil); suerr != nil {
			logger.Ctx(ctx).Error(suerr)
		}

		return errors.Wrap(err, "session.Requester.Get()")
	}

	var user User
	if err := resp.Decode(&user); err != nil {
		return errors.Wrap(err, "api.Response.Decode()")
	}

	if err := s.SetUser(ctx, user); err != nil {
		return errors.Wrap(err, "Store.SetUser()")
	}

	return nil
}

// SetUser replaces the identity record and persists it. A nil user removes
// the persisted record.
func (s *Store) SetUser(ctx context.Context, user User) error {
	if user == nil {
		if err := s.kv.Delete(ctx, keyUser); err != nil {
			return errors.Wrap(err, "sessionstore.KV.Delete()")
		}
	} else {
		rawUser, err := json.Marshal(user)
		if err != nil {
			return errors.Wrap(err, "json.Marshal()")
		}
		if err := s.kv.Set(ctx, keyUser, string(rawUser)); err != nil {
			return errors.Wrap(err, "sessionstore.KV.Set()")
		}
	}

	s.mu.Lock()
	s.user = user.clone()
	s.mu.Unlock()

	return nil
}

// HasPermission reports whether any of the given permissions is present in
// the current scopes. Pure and synchronous; zero arguments report false.
func (s *Store) HasPermission(permissions ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range permissions {
		if slices.Contains(s.scopes, p) {
			return true
		}
	}

	return false
}

// Token returns the current bearer token, empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// SessionID returns the backend-issued session correlation id, if any.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sessionID
}

// User returns the current identity record.
func (s *Store) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user.clone()
}

// Scopes returns the current permission scopes.
func (s *Store) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.scopes)
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token != ""
}

// Loading reports whether a login or profile fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// BearerCredentials implements api.Credentials, so the Store can be wired
// directly into an api.Client.
func (s *Store) BearerCredentials() (sessionID, token string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sessionID, s.token, s.token != ""
}

// TokenSource adapts the Store to oauth2.TokenSource for collaborators built
// against that interface.
func (s *Store) TokenSource() oauth2.TokenSource {
	return &storeTokenSource{store: s}
}

type storeTokenSource struct {
	store *Store
}

func (t *storeTokenSource) Token() (*oauth2.Token, error) {
	_, token, ok := t.store.BearerCredentials()
	if !ok {
		return nil, errors.New("not authenticated")
	}

	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// persist writes through to the durable store. Storage failures are logged
// and absorbed: losing reload survival must not fail the live session.
func (s *Store) persist(ctx context.Context, key, value string) {
	if err := s.kv.Set(ctx, key, value); err != nil {
		logger.Ctx(ctx).Error(errors.Wrap(err, "sessionstore.KV.Set()"))
	}
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// lateSessionID is the second-pass session-id discovery performed after user
// discovery, for backends that tuck the id into the identity record.
func lateSessionID(user User, body map[string]any) string {
	if id := user.str("sessionId"); id != "" {
		return id
	}
	if data, ok := body["data"].(map[string]any); ok {
		if id := stringValue(data["sessionId"]); id != "" {
			return id
		}
	}

	return stringValue(body["sessionId"])
}

func (u User) clone() User {
	if u == nil {
		return nil
	}
	out := make(User, len(u))
	for k, v := range u {
		out[k] = v
	}

	return out
}
