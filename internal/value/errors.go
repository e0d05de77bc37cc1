package value

import "fmt"

// ErrKind classifies a catchable runtime error. Anything carrying one of
// these kinds can be intercepted by a language-level catch handler; only
// host-level failures (allocation, thread creation) may terminate the
// process directly.
type ErrKind string

const (
	TypeError          ErrKind = "TypeError"
	ArityError         ErrKind = "ArityError"
	StateError         ErrKind = "StateError"
	ClosedChannelError ErrKind = "ClosedChannelError"
	OutOfRangeError    ErrKind = "OutOfRangeError"
	AllocationError    ErrKind = "AllocationError"
)

type RuntimeError struct {
	Kind    ErrKind
	Message string
	Cause   *RuntimeError
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s\ncaused by: %s", e.Kind, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Errorf(kind ErrKind, format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, a...),
	}
}
