// Package status implements the activity timer kept for each identity.
//
// A record moves between three states:
//
//	absent --Start--> running --Pause--> paused
//	                     ^                  |
//	                     +-----Resume-------+
//
// Start is accepted from any state and always discards the previous record.
// Stop returns the identity to absent and is accepted from any state.
//
// Elapsed time is never updated in the background. A record stores the
// instant it last entered the running state plus the whole seconds it had
// accumulated before that, and Query derives the current value from the
// injected Clock:
//
//	paused:  elapsed = accumulated
//	running: elapsed = accumulated + floor((now - startedAt) / 1s)
//
// Store is safe for concurrent use. Operations on the same identity are
// linearizable; different identities never interact.
package status
