package session

import "strings"

// Backend responses are duck-typed: tokens, session ids, and identity records
// appear under different keys depending on the deployment. Discovery is an
// ordered list of extraction rules, top-level fields first, then the same
// keys nested one level under "data". First match wins.

var (
	tokenKeys     = []string{"token", "accessToken", "access_token", "authToken", "auth_token"}
	sessionIDKeys = []string{"sessionId", "sessionID", "sid", "session_id"}
)

// extractString applies the ordered key rules to body.
func extractString(body map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s := stringValue(body[key]); s != "" {
			return s, true
		}
	}

	if data, ok := body["data"].(map[string]any); ok {
		for _, key := range keys {
			if s := stringValue(data[key]); s != "" {
				return s, true
			}
		}
	}

	return "", false
}

// extractUser locates the identity record in a login response. Checked in
// order: user, data.user, data itself (when it looks like an identity),
// profile, then the response root.
func extractUser(body map[string]any) (User, bool) {
	if u, ok := body["user"].(map[string]any); ok {
		return User(u), true
	}

	data, _ := body["data"].(map[string]any)
	if data != nil {
		if u, ok := data["user"].(map[string]any); ok {
			return User(u), true
		}
		if hasAnyKey(data, "name", "username", "id", "uid") {
			return User(data), true
		}
	}

	if u, ok := body["profile"].(map[string]any); ok {
		return User(u), true
	}

	if hasAnyKey(body, "name", "username", "email", "firstName") {
		return User(body), true
	}

	return nil, false
}

// fallbackUser is the synthesized identity used when a login response carries
// no recognizable user record.
func fallbackUser() User {
	return User{
		"username":    "User",
		"displayName": "Authenticated User",
	}
}

// displayName derives the display name from the first populated candidate
// field.
func displayName(u User) string {
	for _, key := range []string{"displayName", "name", "fullName"} {
		if s := u.str(key); s != "" {
			return s
		}
	}

	if first := u.str("firstName"); first != "" {
		return strings.TrimSpace(first + " " + u.str("lastName"))
	}

	for _, key := range []string{"username", "email"} {
		if s := u.str(key); s != "" {
			return s
		}
	}

	return ""
}

// extractScopes accepts a raw array, or an object carrying the array under
// "data" or "scopes". Any other shape is reported as unrecognized so the
// caller leaves current scopes unchanged.
func extractScopes(payload any) ([]string, bool) {
	switch v := payload.(type) {
	case []any:
		return stringSlice(v), true
	case map[string]any:
		if arr, ok := v["data"].([]any); ok {
			return stringSlice(arr), true
		}
		if arr, ok := v["scopes"].([]any); ok {
			return stringSlice(arr), true
		}
	}

	return nil, false
}

func stringSlice(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func stringValue(v any) string {
	s, _ := v.(string)

	return s
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := m[key]; ok {
			return true
		}
	}

	return false
}
