// Package wazero registers the guest-facing host module with the wazero
// runtime.
//
// The module exports the four imports every guest links against:
//
//   - log(ptr, len)
//   - invoke(hash_hi, hash_lo, args, args_len, retval) -> status
//   - canonicalize_ref(idx, buf, size) -> status
//   - invoke_ref_func(name, args, args_len, retval) -> status
//
// Arguments are decoded from the wazero value stack and handed to a
// HostFunctions implementation together with the calling module, so the
// implementation can read and write that module's memory and call back into
// its exports.
//
// # Basic Usage
//
//	rt := wazero.NewRuntime(ctx)
//	if err := wazeroadapter.RegisterHostModule(ctx, rt, hostFns); err != nil {
//	    return err
//	}
//
// # Custom Handlers
//
// Additional imports can be added with WithCustomHandler:
//
//	wazeroadapter.RegisterHostModule(ctx, rt, hostFns,
//	    wazeroadapter.WithCustomHandler(wazeroadapter.CustomHandler{
//	        Name:       "trace",
//	        Handler:    traceHandler,
//	        ParamTypes: []api.ValueType{api.ValueTypeI32},
//	    }),
//	)
package wazero
