// Package client holds the guest API that only makes sense in client
// scripts.
package client

import (
	"fmt"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/events"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/wireformat"
)

// EmitNet triggers name on the server.
func EmitNet(name string, payload any) error {
	data, err := wireformat.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event %q: %w", name, err)
	}
	return invoker.InvokeVoid(entities.NativeTriggerServerEventInternal,
		invoker.String(name),
		invoker.Bytes(data),
		invoker.Int32(int32(len(data))))
}

// GameTypeStart is the payload of "onClientGameTypeStart".
type GameTypeStart struct {
	ResourceName string `msgpack:"resource_name"`
}

// GameTypeStartEvent is the event name GameTypeStart arrives on.
const GameTypeStartEvent = "onClientGameTypeStart"

// GameTypeStartStream subscribes to game type starts.
func GameTypeStartStream(r *events.Registry) *events.Stream[GameTypeStart] {
	return events.Subscribe[GameTypeStart](r, GameTypeStartEvent, entities.ScopeLocal)
}
