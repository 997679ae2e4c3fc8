package relay

import "fmt"

// Kind classifies a failed run.
type Kind string

const (
	// KindValidation means the request was unusable; nothing was executed.
	KindValidation Kind = "validation"
	// KindExecution means the codex subprocess failed or timed out.
	KindExecution Kind = "execution"
)

// Error is returned by Service.Run for every failure. Not-found page tokens
// are not errors.
type Error struct {
	Kind   Kind
	Tool   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var msg string
	switch e.Kind {
	case KindValidation:
		msg = fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	default:
		msg = fmt.Sprintf("%s failed: %s", e.Tool, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Tool: ToolName, Reason: reason, Err: err}
}
