package wrapper

import "errors"

// codeError pairs a sentinel error with the machine-readable code named in
// spec §7, mirroring the teacher's fmt.Errorf("...: %w", err) wrapping
// style so errors.Is/errors.As keep working across every call site that
// wraps one of these.
type codeError struct {
	code string
	msg  string
}

func (e *codeError) Error() string { return e.msg }

// Code returns the machine-readable error code from spec §6/§7.
func (e *codeError) Code() string { return e.code }

// Sentinel errors for the taxonomy in spec §7. Wrap with fmt.Errorf("...:
// %w", ErrX) at call sites so errors.Is(err, wrapper.ErrX) still matches.
var (
	ErrInvalidInput       = &codeError{code: "invalid_input", msg: "wrapper: invalid input"}
	ErrUnsupportedEntity  = &codeError{code: "unsupported_entity", msg: "wrapper: unsupported entity"}
	ErrMissingToolCallID  = &codeError{code: "missing_tool_call_id", msg: "wrapper: tool call missing id"}
	ErrDetectorUnavailable = &codeError{code: "detector_unavailable", msg: "wrapper: detector unavailable"}
	ErrLLMUnavailable     = &codeError{code: "llm_unavailable", msg: "wrapper: llm unavailable"}
	ErrStoreUnavailable   = &codeError{code: "store_unavailable", msg: "wrapper: store unavailable"}
	ErrIntegrity          = &codeError{code: "integrity_error", msg: "wrapper: integrity error"}
	ErrConfiguration      = &codeError{code: "configuration_error", msg: "wrapper: configuration error"}
)

// Code returns the machine-readable code for err if it (or something it
// wraps) is one of this package's sentinel errors, else "".
func Code(err error) string {
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
