// Package server holds the guest API that only makes sense in server
// scripts.
package server

import (
	"fmt"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/events"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/reffuncs"
	"github.com/cfxwasm/sdk/wireformat"
)

// EmitNet triggers name on the client identified by target.
func EmitNet(name, target string, payload any) error {
	data, err := wireformat.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event %q: %w", name, err)
	}
	return invoker.InvokeVoid(entities.NativeTriggerClientEventInternal,
		invoker.String(name),
		invoker.String(target),
		invoker.Bytes(data),
		invoker.Int32(int32(len(data))))
}

// Deferrals lets a connecting handler hold the connection open while it
// does asynchronous work.
type Deferrals struct {
	Defer       wireformat.ExternRef `msgpack:"defer"`
	Done        wireformat.ExternRef `msgpack:"done"`
	Handover    wireformat.ExternRef `msgpack:"handover"`
	PresentCard wireformat.ExternRef `msgpack:"presentCard"`
	Update      wireformat.ExternRef `msgpack:"update"`
}

// Hold tells the server to wait for Finish.
func (d Deferrals) Hold() bool {
	_, ok := reffuncs.InvokeExtern[any](d.Defer)
	return ok
}

// Progress shows message on the connecting player's screen.
func (d Deferrals) Progress(message string) bool {
	_, ok := reffuncs.InvokeExtern[any](d.Update, message)
	return ok
}

// Finish lets the player in, or rejects them when reason is not empty.
func (d Deferrals) Finish(reason string) bool {
	var ok bool
	if reason == "" {
		_, ok = reffuncs.InvokeExtern[any](d.Done)
	} else {
		_, ok = reffuncs.InvokeExtern[any](d.Done, reason)
	}
	return ok
}

// PlayerConnecting is the payload of the "playerConnecting" event.
type PlayerConnecting struct {
	PlayerName    string               `msgpack:"player_name"`
	SetKickReason wireformat.ExternRef `msgpack:"set_kick_reason"`
	Deferrals     Deferrals            `msgpack:"deferrals"`
}

// PlayerConnectingEvent is the event name PlayerConnecting arrives on.
const PlayerConnectingEvent = "playerConnecting"

// PlayerConnectingStream subscribes to connecting players.
func PlayerConnectingStream(r *events.Registry) *events.Stream[PlayerConnecting] {
	return events.Subscribe[PlayerConnecting](r, PlayerConnectingEvent, entities.ScopeLocal)
}
