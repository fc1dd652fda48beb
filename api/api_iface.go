package api

import "net/http"

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials supplies the bearer credentials attached to outgoing requests.
//
// When a session id is present it is concatenated into the Authorization
// header ahead of the token: "Bearer <sessionID> <token>".
type Credentials interface {
	BearerCredentials() (sessionID, token string, ok bool)
}
