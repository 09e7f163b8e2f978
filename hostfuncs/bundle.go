package hostfuncs

import (
	"bytes"
	"context"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
)

// Bundle is a pre-configured set of related natives.
// Bundles allow registering multiple handlers at once for common use cases.
type Bundle interface {
	// Handlers returns a map of native hashes to handlers.
	Handlers() map[uint64]Handler
}

type staticBundle struct {
	handlers map[uint64]Handler
}

func (b *staticBundle) Handlers() map[uint64]Handler {
	return b.handlers
}

// CoreBundle returns the natives every module of resource needs: event
// handler registration, local and network emits, and the resource name.
// Events travel through router.
func CoreBundle(router *Router, resource string) Bundle {
	return &staticBundle{
		handlers: map[uint64]Handler{
			entities.NativeRegisterResourceAsEventHandler: func(ctx context.Context, f *CallFrame) error {
				name, err := f.Arg(0)
				if err != nil {
					return err
				}
				Annotate(ctx, "event", name.String())
				router.Register(resource, name.String())
				return nil
			},
			entities.NativeTriggerEventInternal: func(ctx context.Context, f *CallFrame) error {
				name, err := f.Arg(0)
				if err != nil {
					return err
				}
				Annotate(ctx, "event", name.String())
				payload, err := payloadArg(f, 1)
				if err != nil {
					return err
				}
				return router.Emit(resource, name.String(), payload)
			},
			entities.NativeTriggerClientEventInternal: func(ctx context.Context, f *CallFrame) error {
				name, err := f.Arg(0)
				if err != nil {
					return err
				}
				Annotate(ctx, "event", name.String())
				target, err := f.Arg(1)
				if err != nil {
					return err
				}
				payload, err := payloadArg(f, 2)
				if err != nil {
					return err
				}
				Annotate(ctx, "target", target.String())
				return router.EmitToClients(resource, name.String(), target.String(), payload)
			},
			entities.NativeTriggerServerEventInternal: func(ctx context.Context, f *CallFrame) error {
				name, err := f.Arg(0)
				if err != nil {
					return err
				}
				Annotate(ctx, "event", name.String())
				payload, err := payloadArg(f, 1)
				if err != nil {
					return err
				}
				return router.EmitToServer(resource, name.String(), payload)
			},
			entities.NativeGetCurrentResourceName: func(_ context.Context, f *CallFrame) error {
				f.ReturnString(resource)
				return nil
			},
		},
	}
}

// payloadArg reads a (bytes, length) argument pair starting at i and copies
// the payload out of guest memory.
func payloadArg(f *CallFrame, i int) ([]byte, error) {
	data, err := f.Arg(i)
	if err != nil {
		return nil, err
	}
	length, err := f.Arg(i + 1)
	if err != nil {
		return nil, err
	}
	n := int(length.Int32())
	if n < 0 || n > len(data.Bytes()) {
		return nil, errors.ErrWrongArgs
	}
	return bytes.Clone(data.Bytes()[:n]), nil
}

type compositeBundle struct {
	bundles []Bundle
}

func (b *compositeBundle) Handlers() map[uint64]Handler {
	result := make(map[uint64]Handler)
	for _, bundle := range b.bundles {
		for hash, handler := range bundle.Handlers() {
			result[hash] = handler
		}
	}
	return result
}

// Combine merges bundles. Later bundles win on duplicate hashes.
func Combine(bundles ...Bundle) Bundle {
	return &compositeBundle{bundles: bundles}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for hash, handler := range bundle.Handlers() {
			if err := b.addHandler(hash, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}
