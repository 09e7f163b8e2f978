// Package exports shares functions between resources.
//
// An export named N in resource R is served through the local event
// "__cfx_export_R_N". Importers trigger that event with a setter callback;
// the exporting side answers by invoking the setter with its own callback
// handle, which the importer can then call through reffuncs.InvokeExtern.
package exports

import (
	"context"
	"fmt"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/cfxwasm/sdk/events"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/reffuncs"
	"github.com/cfxwasm/sdk/scheduler"
	"github.com/cfxwasm/sdk/wireformat"
)

// EventName returns the event an export is served on.
func EventName(resource, name string) string {
	return fmt.Sprintf("__cfx_export_%s_%s", resource, name)
}

type setterRequest struct {
	_msgpack struct{} `msgpack:",as_array"`
	Setter   wireformat.ExternRef
}

type setterArgs struct {
	_msgpack struct{} `msgpack:",as_array"`
	Fn       wireformat.ExternRef
}

// MakeExport serves fn as export name of the current resource.
func MakeExport(r *events.Registry, name string, fn *reffuncs.RefFunction) error {
	resource, err := invoker.Invoke[string](entities.NativeGetCurrentResourceName)
	if err != nil {
		return fmt.Errorf("failed to resolve resource name: %w", err)
	}

	events.SetEventHandlerClosure(r, EventName(resource, name), func(ev events.Event[setterRequest]) {
		reffuncs.InvokeExtern[any](ev.Payload.Setter, fn)
	}, entities.ScopeLocal)
	return nil
}

// ImportFunction requests export name from resource. It returns as soon as
// the exporting side has answered, suspending the calling task while the
// request is in flight.
func ImportFunction(ctx context.Context, refs *reffuncs.Registry, resource, name string) (wireformat.ExternRef, error) {
	var (
		got  wireformat.ExternRef
		done bool
	)
	task := scheduler.CurrentTask(ctx)

	setter := reffuncs.New(refs, func(args setterArgs) any {
		got = args.Fn
		done = true
		if task != nil {
			task.Wake()
		}
		return nil
	})
	defer refs.Remove(setter.Index())

	if err := events.Emit(EventName(resource, name), setterRequest{Setter: setter.Extern()}); err != nil {
		return got, err
	}

	for !done {
		if task == nil {
			return got, errors.ErrNotInTask
		}
		if err := scheduler.Park(ctx); err != nil {
			return got, err
		}
	}
	if got.IsZero() {
		return got, fmt.Errorf("export %s of %s: %w", name, resource, errors.ErrNullResult)
	}
	return got, nil
}
