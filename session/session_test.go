package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/bontonsoft/hrmscore/api"
	"github.com/bontonsoft/hrmscore/mock/mock_session"
	"github.com/bontonsoft/hrmscore/sessionstore"
	"github.com/go-playground/errors/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	gomock "go.uber.org/mock/gomock"
)

func TestStore_Login(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		prepare       func(*mock_session.MockRequester)
		wantErr       bool
		wantAuthErr   bool
		wantToken     string
		wantSessionID string
		wantUser      User
		wantScopes    []string
	}{
		{
			name: "token and user discovered",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(&api.Response{Body: []byte(`{"accessToken":"t1","user":{"firstName":"Ann"}}`)}, nil)
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`["dashboard.view"]`)}, nil)
			},
			wantToken:  "t1",
			wantUser:   User{"firstName": "Ann", "displayName": "Ann"},
			wantScopes: []string{"dashboard.view"},
		},
		{
			name: "top-level token wins over nested",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(&api.Response{Body: []byte(`{"token":"top","data":{"accessToken":"nested","user":{"name":"Bob"}}}`)}, nil)
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`[]`)}, nil)
			},
			wantToken:  "top",
			wantUser:   User{"name": "Bob", "displayName": "Bob"},
			wantScopes: []string{},
		},
		{
			name: "token nested under data",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(&api.Response{Body: []byte(`{"data":{"accessToken":"abc"}}`)}, nil)
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`[]`)}, nil)
			},
			wantToken:  "abc",
			wantUser:   User{"username": "User", "displayName": "Authenticated User"},
			wantScopes: []string{},
		},
		{
			name: "session id persisted alongside token",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(&api.Response{Body: []byte(`{"accessToken":"t","sessionId":"s-1","user":{"username":"alee"}}`)}, nil)
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`[]`)}, nil)
			},
			wantToken:     "t",
			wantSessionID: "s-1",
			wantUser:      User{"username": "alee", "displayName": "alee"},
			wantScopes:    []string{},
		},
		{
			name: "scope fetch failure leaves session established",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(&api.Response{Body: []byte(`{"accessToken":"t1","user":{"name":"Ann"}}`)}, nil)
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(nil, errors.New("scope fetch failed"))
			},
			wantToken: "t1",
			wantUser:  User{"name": "Ann", "displayName": "Ann"},
		},
		{
			name: "no token in response",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(&api.Response{Body: []byte(`{"ok":true}`)}, nil)
			},
			wantErr:     true,
			wantAuthErr: true,
		},
		{
			name: "credentials rejected",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(nil, &api.Error{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"})
			},
			wantErr:     true,
			wantAuthErr: true,
		},
		{
			name: "transport failure",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/login", gomock.Any(), gomock.Any()).
					Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mock_session.NewMockRequester(ctrl)
			if tt.prepare != nil {
				tt.prepare(client)
			}

			s := New(client, sessionstore.NewMemory())

			user, err := s.Login(context.Background(), "/auth/login", map[string]string{"username": "u", "password": "p"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Login() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if tt.wantAuthErr != IsAuthError(err) {
				t.Errorf("IsAuthError() = %v, want = %v", IsAuthError(err), tt.wantAuthErr)
			}
			if tt.wantErr {
				if s.IsAuthenticated() {
					t.Error("IsAuthenticated() = true after failed login")
				}

				return
			}

			if diff := cmp.Diff(tt.wantUser, user); diff != "" {
				t.Errorf("Login() user mismatch (-want +got):\n%s", diff)
			}
			if got := s.Token(); got != tt.wantToken {
				t.Errorf("Token() = %q, want = %q", got, tt.wantToken)
			}
			if got := s.SessionID(); got != tt.wantSessionID {
				t.Errorf("SessionID() = %q, want = %q", got, tt.wantSessionID)
			}
			if diff := cmp.Diff(tt.wantScopes, s.Scopes(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Scopes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_Logout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		prepare  func(*mock_session.MockRequester)
	}{
		{
			name:     "backend notified",
			endpoint: "/auth/logout",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/logout", gomock.Any(), gomock.Any()).
					Return(&api.Response{}, nil)
			},
		},
		{
			name:     "notify failure still ends session",
			endpoint: "/auth/logout",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Post(gomock.Any(), "/auth/logout", gomock.Any(), gomock.Any()).
					Return(nil, errors.New("backend down"))
			},
		},
		{
			name: "no endpoint skips notify",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			ctrl := gomock.NewController(t)
			client := mock_session.NewMockRequester(ctrl)
			if tt.prepare != nil {
				tt.prepare(client)
			}

			kv := sessionstore.NewMemory()
			s := New(client, kv)
			s.token = "t1"
			s.sessionID = "s-1"
			s.user = User{"name": "Ann"}
			s.scopes = []string{"dashboard.view"}
			for _, key := range []string{s.tokenKey, keySessionID, keyUser, keyScopes} {
				if err := kv.Set(ctx, key, "x"); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}

			s.Logout(ctx, tt.endpoint)

			if s.IsAuthenticated() {
				t.Error("IsAuthenticated() = true after logout")
			}
			if s.Token() != "" || s.SessionID() != "" || s.User() != nil || s.Scopes() != nil {
				t.Error("session state not fully cleared")
			}
			if s.HasPermission("dashboard.view") {
				t.Error("HasPermission() = true after logout")
			}
			for _, key := range []string{s.tokenKey, keySessionID, keyUser, keyScopes} {
				if _, ok, _ := kv.Get(ctx, key); ok {
					t.Errorf("persisted key %q survived logout", key)
				}
			}
		})
	}
}

func TestStore_HasPermission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		scopes      []string
		permissions []string
		want        bool
	}{
		{
			name:        "single match",
			scopes:      []string{"employee.view", "leave.apply"},
			permissions: []string{"employee.view"},
			want:        true,
		},
		{
			name:        "any match suffices",
			scopes:      []string{"employee.view", "leave.apply"},
			permissions: []string{"payroll.approve", "leave.apply"},
			want:        true,
		},
		{
			name:        "no match",
			scopes:      []string{"employee.view"},
			permissions: []string{"payroll.approve"},
		},
		{
			name:   "no permissions asked",
			scopes: []string{"employee.view"},
		},
		{
			name:        "empty scopes",
			permissions: []string{"employee.view"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(nil, sessionstore.NewMemory())
			s.scopes = tt.scopes

			if got := s.HasPermission(tt.permissions...); got != tt.want {
				t.Errorf("HasPermission(%v) = %v, want = %v", tt.permissions, got, tt.want)
			}
		})
	}
}

func TestStore_Restore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		persisted  map[string]string
		prepare    func(*mock_session.MockRequester)
		wantToken  string
		wantUser   User
		wantScopes []string
	}{
		{
			name: "full state restored without fetch",
			persisted: map[string]string{
				"accessToken": "t1",
				"sessionId":   "s-1",
				"userDetails": `{"name":"Ann"}`,
				"scopes":      `["dashboard.view"]`,
			},
			wantToken:  "t1",
			wantUser:   User{"name": "Ann"},
			wantScopes: []string{"dashboard.view"},
		},
		{
			name: "token without scopes triggers fetch",
			persisted: map[string]string{
				"accessToken": "t1",
			},
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`["leave.apply"]`)}, nil)
			},
			wantToken:  "t1",
			wantScopes: []string{"leave.apply"},
		},
		{
			name: "corrupt user record degrades to no identity",
			persisted: map[string]string{
				"accessToken": "t1",
				"userDetails": "not-json",
				"scopes":      `["a"]`,
			},
			wantToken:  "t1",
			wantScopes: []string{"a"},
		},
		{
			name: "empty store restores nothing",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			ctrl := gomock.NewController(t)
			client := mock_session.NewMockRequester(ctrl)
			if tt.prepare != nil {
				tt.prepare(client)
			}

			kv := sessionstore.NewMemory()
			for key, value := range tt.persisted {
				if err := kv.Set(ctx, key, value); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}

			s := New(client, kv)
			if err := s.Restore(ctx); err != nil {
				t.Fatalf("Restore() error = %v", err)
			}

			if got := s.Token(); got != tt.wantToken {
				t.Errorf("Token() = %q, want = %q", got, tt.wantToken)
			}
			if diff := cmp.Diff(tt.wantUser, s.User()); diff != "" {
				t.Errorf("User() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantScopes, s.Scopes(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Scopes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_FetchScopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		token      string
		prepare    func(*mock_session.MockRequester)
		wantScopes []string
	}{
		{
			name:  "raw array payload",
			token: "t1",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`["a.view","b.edit"]`)}, nil)
			},
			wantScopes: []string{"a.view", "b.edit"},
		},
		{
			name:  "array under data",
			token: "t1",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`{"data":["a.view"]}`)}, nil)
			},
			wantScopes: []string{"a.view"},
		},
		{
			name:  "unrecognized shape keeps current scopes",
			token: "t1",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(&api.Response{Body: []byte(`{"count":3}`)}, nil)
			},
			wantScopes: []string{"old.scope"},
		},
		{
			name:  "request failure keeps current scopes",
			token: "t1",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/roles/scope", gomock.Any()).
					Return(nil, errors.New("backend down"))
			},
			wantScopes: []string{"old.scope"},
		},
		{
			name:       "no token is a no-op",
			wantScopes: []string{"old.scope"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mock_session.NewMockRequester(ctrl)
			if tt.prepare != nil {
				tt.prepare(client)
			}

			s := New(client, sessionstore.NewMemory())
			s.token = tt.token
			s.scopes = []string{"old.scope"}

			s.FetchScopes(context.Background())

			if diff := cmp.Diff(tt.wantScopes, s.Scopes(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Scopes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_FetchProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prepare  func(*mock_session.MockRequester)
		wantErr  bool
		wantUser User
	}{
		{
			name: "profile loaded",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/users/me", gomock.Any()).
					Return(&api.Response{Body: []byte(`{"name":"Ann"}`)}, nil)
			},
			wantUser: User{"name": "Ann"},
		},
		{
			name: "fetch failure clears identity",
			prepare: func(client *mock_session.MockRequester) {
				client.EXPECT().
					Get(gomock.Any(), "/users/me", gomock.Any()).
					Return(nil, errors.New("backend down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mock_session.NewMockRequester(ctrl)
			if tt.prepare != nil {
				tt.prepare(client)
			}

			s := New(client, sessionstore.NewMemory())
			s.user = User{"name": "Old"}

			err := s.FetchProfile(context.Background(), "/users/me")
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchProfile() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.wantUser, s.User()); diff != "" {
				t.Errorf("User() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_BearerCredentials(t *testing.T) {
	t.Parallel()

	s := New(nil, sessionstore.NewMemory())

	if _, _, ok := s.BearerCredentials(); ok {
		t.Error("BearerCredentials() ok = true without a token")
	}
	if _, err := s.TokenSource().Token(); err == nil {
		t.Error("TokenSource().Token() error = nil without a token")
	}

	s.token = "t1"
	s.sessionID = "s-1"

	sessionID, token, ok := s.BearerCredentials()
	if !ok || sessionID != "s-1" || token != "t1" {
		t.Errorf("BearerCredentials() = (%q, %q, %v), want = (%q, %q, true)", sessionID, token, ok, "s-1", "t1")
	}

	tok, err := s.TokenSource().Token()
	if err != nil {
		t.Fatalf("TokenSource().Token() error = %v", err)
	}
	if tok.AccessToken != "t1" || tok.TokenType != "Bearer" {
		t.Errorf("TokenSource().Token() = %+v, want AccessToken %q TokenType Bearer", tok, "t1")
	}
}
