package entities

// CallStatus is the i32 returned by the host's invoke and invoke_ref_func
// imports. Non-negative values are the number of result bytes written.
type CallStatus int32

const (
	StatusSuccess       CallStatus = 0
	StatusNoSpace       CallStatus = -1
	StatusNoReturnValue CallStatus = -2
	StatusTooManyArgs   CallStatus = -3
	StatusNullResult    CallStatus = -4
	StatusWrongArgs     CallStatus = -5
	StatusCritical      CallStatus = -6
)

func (s CallStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoSpace:
		return "no_space_in_buffer"
	case StatusNoReturnValue:
		return "no_return_value"
	case StatusTooManyArgs:
		return "too_much_args"
	case StatusNullResult:
		return "null_result"
	case StatusWrongArgs:
		return "wrong_args"
	case StatusCritical:
		return "critical_error"
	default:
		if s > 0 {
			return "success"
		}
		return "host_defined"
	}
}

// Native identifiers used by the core itself. Everything else belongs to the
// native catalogue.
const (
	NativeRegisterResourceAsEventHandler uint64 = 0xD233A168
	NativeTriggerEventInternal           uint64 = 0x91310870
	NativeTriggerClientEventInternal     uint64 = 0x2F7A49E6
	NativeTriggerServerEventInternal     uint64 = 0x7FDD1128
	NativeGetCurrentResourceName         uint64 = 0xE5E9EBBB
)
