package async

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Token identifies one Start of one tracker. Tokens are unique for the life of
// the process, so a result can never settle a tracker it was not started for.
type Token uint64

var lastToken atomic.Uint64

func nextToken() Token { return Token(lastToken.Add(1)) }

// Tracker holds the lifecycle of one logical operation. It is a value:
// every transition returns a new Tracker and the receiver is left untouched.
// The zero value is a tracker in NotStarted.
type Tracker[T any] struct {
	state State[T]
	token Token
}

// New returns a tracker in NotStarted.
func New[T any]() Tracker[T] { return Tracker[T]{} }

// Start moves the tracker to Pending, dropping any previous payload, and
// issues a fresh token for the new invocation.
func (t Tracker[T]) Start() Tracker[T] {
	return Tracker[T]{state: State[T]{status: Pending}, token: nextToken()}
}

// ResolveSuccess moves the tracker to Succeeded(v) regardless of its current
// status. The last resolution applied is the one observed.
func (t Tracker[T]) ResolveSuccess(v T) Tracker[T] {
	t.state = State[T]{status: Succeeded, value: v}
	return t
}

// ResolveFailure moves the tracker to Failed(msg) regardless of its current status.
func (t Tracker[T]) ResolveFailure(msg string) Tracker[T] {
	t.state = State[T]{status: Failed, message: msg}
	return t
}

func (t Tracker[T]) State() State[T] { return t.state }

// Token returns the token issued by the most recent Start, or zero if the
// tracker was never started.
func (t Tracker[T]) Token() Token { return t.token }

// Result is the message an operation started with Run delivers back to the
// update loop.
type Result[T any] struct {
	Token Token
	Value T
	Err   error
}

// Apply settles the tracker from r. Results for any token other than the most
// recent Start are stale and leave the tracker unchanged.
func (t Tracker[T]) Apply(r Result[T]) Tracker[T] {
	if t.token == 0 || r.Token != t.token {
		return t
	}
	if r.Err != nil {
		return t.ResolveFailure(Describe(r.Err))
	}
	return t.ResolveSuccess(r.Value)
}

// Current reports whether r belongs to the tracker's latest invocation.
func (t Tracker[T]) Current(r Result[T]) bool {
	return t.token != 0 && r.Token == t.token
}

// Run wraps op in a command that reports its outcome as a Result tagged with
// token. Errors and panics from op never escape the command.
func Run[T any](ctx context.Context, token Token, op func(context.Context) (T, error)) tea.Cmd {
	return func() tea.Msg {
		return Do(ctx, token, op)
	}
}

// Do invokes op synchronously and captures its outcome.
func Do[T any](ctx context.Context, token Token, op func(context.Context) (T, error)) (res Result[T]) {
	res.Token = token
	defer func() {
		if p := recover(); p != nil {
			var zero T
			res.Value = zero
			res.Err = fromPanic(p)
		}
	}()
	res.Value, res.Err = op(ctx)
	return res
}
