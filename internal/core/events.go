package core

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// MutationEvent records one create/update/delete accepted by the backend.
type MutationEvent struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entity_id,omitempty"`
	Admin     string    `json:"admin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMutationEvent stamps an event with a sortable unique id.
func NewMutationEvent(entity string, action AuditAction, entityID, admin string, at time.Time) MutationEvent {
	return MutationEvent{
		ID:        ulid.MustNew(ulid.Timestamp(at), rand.Reader).String(),
		Entity:    entity,
		Action:    string(action),
		EntityID:  entityID,
		Admin:     admin,
		Timestamp: at.UTC(),
	}
}
