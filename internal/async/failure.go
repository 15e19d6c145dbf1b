package async

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownError is shown when a failure carries no usable description.
const UnknownError = "Unknown error"

// Failure is the structured error collaborators return. Description is the
// human-readable text meant for the user; Err keeps the underlying cause.
type Failure struct {
	Description string
	Err         error
}

func (f *Failure) Error() string {
	switch {
	case f.Description != "" && f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Description, f.Err)
	case f.Description != "":
		return f.Description
	case f.Err != nil:
		return f.Err.Error()
	default:
		return ""
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Describe extracts the message a failed tracker should display. A Failure
// description anywhere in the chain wins, then the error text itself.
func Describe(err error) string {
	if err == nil {
		return UnknownError
	}
	var f *Failure
	if errors.As(err, &f) && strings.TrimSpace(f.Description) != "" {
		return f.Description
	}
	if msg := err.Error(); strings.TrimSpace(msg) != "" {
		return msg
	}
	return UnknownError
}

// fromPanic turns a recovered panic value into an error. Values without a
// textual description produce an empty Failure.
func fromPanic(v any) error {
	switch p := v.(type) {
	case error:
		return p
	case string:
		return &Failure{Description: p}
	case fmt.Stringer:
		return &Failure{Description: p.String()}
	default:
		return &Failure{}
	}
}
