// Package mock is used to generate mock files for testing.
package mock

//go:generate mockgen -source ../session/session_iface.go -destination mock_session/mock_session_iface.go
//go:generate mockgen -source ../sessionstore/sessionstore.go -destination mock_sessionstore/mock_sessionstore.go
