// Package sdk is the entry point for guest scripts.
//
// Importing it links the module's host bridge: under GOOS=wasip1 the
// runtime's entry points (events, ticks, ref calls) are exported and every
// native call goes through the host's invoke import. Scripts set themselves
// up from init functions, since the host runs the module's initializer and
// then drives it only through those entry points.
//
//	func init() {
//	    sdk.On("chat:message", func(ev sdk.Event[Message]) {
//	        log.Printf("%s says %s", ev.Source, ev.Payload.Text)
//	    })
//	    sdk.Spawn(func(ctx context.Context) {
//	        for {
//	            if err := sdk.Sleep(ctx, time.Second); err != nil {
//	                return
//	            }
//	            _ = sdk.Emit("heartbeat", struct{}{})
//	        }
//	    })
//	}
package sdk

import (
	"context"
	"time"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/events"
	"github.com/cfxwasm/sdk/exports"
	_ "github.com/cfxwasm/sdk/infrastructure/wasm" // host bridge and module entry points
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/reffuncs"
	"github.com/cfxwasm/sdk/scheduler"
	"github.com/cfxwasm/sdk/wireformat"
)

// Event is a decoded event with its logical sender.
type Event[T any] = events.Event[T]

// ExternRef is a callable reference owned by the host or another resource.
type ExternRef = wireformat.ExternRef

// Spawn starts a task on the module's scheduler. It first runs on the next
// tick or event.
func Spawn(fn func(ctx context.Context)) *scheduler.Task {
	return scheduler.Default().Spawn(fn)
}

// Sleep suspends the calling task for at least d.
func Sleep(ctx context.Context, d time.Duration) error {
	return scheduler.SleepFor(ctx, d)
}

// Yield lets every other ready task run once before the caller continues.
func Yield(ctx context.Context) error {
	return scheduler.Yield(ctx)
}

// On calls fn for every local event called name.
func On[T any](name string, fn func(Event[T])) {
	events.SetEventHandlerClosure(events.Default(), name, fn, entities.ScopeLocal)
}

// OnNet calls fn for every event called name sent by a network peer.
func OnNet[T any](name string, fn func(Event[T])) {
	events.SetEventHandlerClosure(events.Default(), name, fn, entities.ScopeNetwork)
}

// Subscribe returns a stream of local events called name.
func Subscribe[T any](name string) *events.Stream[T] {
	return events.Subscribe[T](events.Default(), name, entities.ScopeLocal)
}

// Emit triggers a local event.
func Emit(name string, payload any) error {
	return events.Emit(name, payload)
}

// NewRef registers fn as a ref function callable by the host.
func NewRef[In, Out any](fn func(In) Out) *reffuncs.RefFunction {
	return reffuncs.New(reffuncs.Default(), fn)
}

// Export makes fn callable by other resources as name.
func Export(name string, fn *reffuncs.RefFunction) error {
	return exports.MakeExport(events.Default(), name, fn)
}

// Import resolves the function another resource exported as name.
func Import(ctx context.Context, resource, name string) (ExternRef, error) {
	return exports.ImportFunction(ctx, reffuncs.Default(), resource, name)
}

// Call invokes an external ref and decodes its result.
func Call[Out any](ref ExternRef, args ...any) (Out, bool) {
	return reffuncs.InvokeExtern[Out](ref, args...)
}

// Invoke calls a native by hash and decodes its result as R.
func Invoke[R any](hash uint64, args ...entities.Arg) (R, error) {
	return invoker.Invoke[R](hash, args...)
}

// ResourceName returns the name of the resource this module runs as.
func ResourceName() (string, error) {
	return invoker.Invoke[string](entities.NativeGetCurrentResourceName)
}
