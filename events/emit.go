package events

import (
	"fmt"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/wireformat"
)

// Emit triggers a local event. The payload is encoded by field name.
func Emit(name string, payload any) error {
	data, err := wireformat.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event %q: %w", name, err)
	}
	return invoker.InvokeVoid(entities.NativeTriggerEventInternal,
		invoker.String(name),
		invoker.Bytes(data),
		invoker.Int32(int32(len(data))))
}
