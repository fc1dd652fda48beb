package api

import "golang.org/x/oauth2"

// StaticCredentials is a fixed token (and optional session id) credential
// source.
type StaticCredentials struct {
	SessionID string
	Token     string
}

// BearerCredentials implements Credentials.
func (s StaticCredentials) BearerCredentials() (sessionID, token string, ok bool) {
	return s.SessionID, s.Token, s.Token != ""
}

// TokenSourceCredentials adapts an oauth2.TokenSource to the Credentials
// interface, for deployments that obtain tokens from an external identity
// provider instead of the HRMS login endpoint.
func TokenSourceCredentials(ts oauth2.TokenSource) Credentials {
	return tokenSourceCredentials{ts: ts}
}

type tokenSourceCredentials struct {
	ts oauth2.TokenSource
}

func (c tokenSourceCredentials) BearerCredentials() (sessionID, token string, ok bool) {
	tok, err := c.ts.Token()
	if err != nil || !tok.Valid() {
		return "", "", false
	}

	return "", tok.AccessToken, true
}
