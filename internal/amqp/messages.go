package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"gamezone/internal/core"
)

// ErrInvalidMessage marks a body that can never be processed.
var ErrInvalidMessage = errors.New("invalid mutation message")

// MutationMessageToJSON encodes an event for publishing
func MutationMessageToJSON(ev core.MutationEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// MutationMessageFromJSON decodes and checks a delivered event
func MutationMessageFromJSON(data []byte) (core.MutationEvent, error) {
	var ev core.MutationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.MutationEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if ev.ID == "" || ev.Entity == "" || ev.Action == "" {
		return core.MutationEvent{}, fmt.Errorf("%w: missing id, entity or action", ErrInvalidMessage)
	}
	return ev, nil
}
