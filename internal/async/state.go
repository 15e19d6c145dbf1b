// Package async tracks the lifecycle of a single asynchronous operation so a
// view can decide what to display for it.
package async

// Status is the lifecycle stage of an operation.
type Status int

const (
	NotStarted Status = iota
	Pending
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of a tracker. Only the payload matching the
// status is observable.
type State[T any] struct {
	status  Status
	value   T
	message string
}

func (s State[T]) Status() Status { return s.status }

// Value returns the success payload. ok is false unless the status is Succeeded.
func (s State[T]) Value() (v T, ok bool) {
	if s.status != Succeeded {
		return v, false
	}
	return s.value, true
}

// Message returns the failure description. ok is false unless the status is Failed.
func (s State[T]) Message() (string, bool) {
	if s.status != Failed {
		return "", false
	}
	return s.message, true
}
