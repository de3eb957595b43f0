// Package handlers provides HTTP handlers for the gymsync status server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"github.com/nomis52/gymsync/server/auth"
	"github.com/nomis52/gymsync/server/types"
	"github.com/nomis52/gymsync/status"
)

// StatusStore owns the activity timers.
type StatusStore interface {
	Start(id, activity string) error
	Pause(id string) error
	Resume(id string) error
	Stop(id string)
	Query(id string) (status.Snapshot, error)
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// VerifierProvider provides the current API key verifier. The verifier may
// change on reload.
type VerifierProvider interface {
	Verifier() auth.Verifier
}

// PropertiesProvider provides metadata about the running server.
type PropertiesProvider interface {
	Properties() types.ServerProperties
}
