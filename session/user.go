package session

// User is the opaque identity record discovered in backend responses. Its
// shape is backend-defined; only the display name derivation is fixed.
type User map[string]any

// DisplayName returns the user's resolved display name.
func (u User) DisplayName() string {
	return u.str("displayName")
}

func (u User) str(key string) string {
	if u == nil {
		return ""
	}
	s, _ := u[key].(string)

	return s
}
