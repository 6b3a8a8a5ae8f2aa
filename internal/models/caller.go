// internal/models/caller.go
package models

import "github.com/google/uuid"

// Caller is the identity an operation runs on behalf of, as resolved from a
// bearer token. System callers are in-process jobs (seeding, maintenance).
type Caller struct {
	UID     uuid.UUID `json:"uid"`
	IsAdmin bool      `json:"is_admin"`
	System  bool      `json:"-"`
}

func SystemCaller() Caller {
	return Caller{System: true}
}

func Anonymous() Caller {
	return Caller{}
}

func (c Caller) Authenticated() bool {
	return c.System || c.UID != uuid.Nil
}

func (c Caller) Privileged() bool {
	return c.System || (c.IsAdmin && c.UID != uuid.Nil)
}

// ActsFor reports whether the caller may touch data owned by uid.
func (c Caller) ActsFor(uid uuid.UUID) bool {
	return c.System || (c.UID != uuid.Nil && c.UID == uid)
}
