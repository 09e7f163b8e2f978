package hostfuncs

import (
	"context"
	"fmt"

	"github.com/cfxwasm/sdk/wireformat"
)

// Handler executes one native. It reads its arguments from the frame and
// sets at most one result. A *errors.StatusError return passes its code to
// the guest; any other error becomes CRITICAL_ERROR.
type Handler func(ctx context.Context, frame *CallFrame) error

// HostFunc is a generic function signature for natives that take one
// msgpack payload and answer with one msgpack object.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// NewMsgPackHandler wraps a typed HostFunc into a Handler.
// The request is decoded from the first argument (a Bytes slot) and the
// response is encoded as the MsgPack result.
//
// Usage:
//
//	h := hostfuncs.NewMsgPackHandler(func(ctx context.Context, req SpawnRequest) (SpawnResponse, error) {
//	    return world.Spawn(ctx, req)
//	})
func NewMsgPackHandler[Req any, Resp any](fn HostFunc[Req, Resp]) Handler {
	return func(ctx context.Context, frame *CallFrame) error {
		arg, err := frame.Arg(0)
		if err != nil {
			return err
		}

		var req Req
		if err := wireformat.Unmarshal(arg.Bytes(), &req); err != nil {
			return fmt.Errorf("failed to unmarshal request: %w", err)
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return err
		}

		if err := frame.ReturnObject(resp); err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		return nil
	}
}
