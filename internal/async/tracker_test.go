package async

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTrackerStartsNotStarted(t *testing.T) {
	tr := New[int]()
	assert.Equal(t, NotStarted, tr.State().Status())
	assert.Equal(t, Token(0), tr.Token())

	_, ok := tr.State().Value()
	assert.False(t, ok)
	_, ok = tr.State().Message()
	assert.False(t, ok)
}

func TestStartIsPendingFromAnyState(t *testing.T) {
	tests := []struct {
		name string
		from Tracker[string]
	}{
		{"not started", New[string]()},
		{"pending", New[string]().Start()},
		{"succeeded", New[string]().Start().ResolveSuccess("done")},
		{"failed", New[string]().Start().ResolveFailure("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := tc.from.Start()
			assert.Equal(t, Pending, tr.State().Status())
			_, ok := tr.State().Value()
			assert.False(t, ok, "stale success payload observable")
			_, ok = tr.State().Message()
			assert.False(t, ok, "stale failure message observable")
			assert.NotEqual(t, tc.from.Token(), tr.Token())
		})
	}
}

func TestResolveSuccessClearsFailure(t *testing.T) {
	tr := New[[]string]().Start().ResolveFailure("first").ResolveSuccess([]string{"g1"})

	v, ok := tr.State().Value()
	require.True(t, ok)
	assert.Equal(t, []string{"g1"}, v)
	_, ok = tr.State().Message()
	assert.False(t, ok)
	assert.Equal(t, Succeeded, tr.State().Status())
}

func TestResolveFailure(t *testing.T) {
	tr := New[int]().Start().ResolveSuccess(3).ResolveFailure("network down")

	msg, ok := tr.State().Message()
	require.True(t, ok)
	assert.Equal(t, "network down", msg)
	_, ok = tr.State().Value()
	assert.False(t, ok)
}

func TestResolveWithoutStartIsPermitted(t *testing.T) {
	tr := New[int]().ResolveSuccess(7)
	v, ok := tr.State().Value()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestStateReadIsStable(t *testing.T) {
	tr := New[int]().Start().ResolveSuccess(1)
	assert.Equal(t, tr.State(), tr.State())
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	orig := New[int]().Start()
	_ = orig.ResolveSuccess(1)
	_ = orig.ResolveFailure("x")
	assert.Equal(t, Pending, orig.State().Status())
}

func TestApplyIgnoresStaleTokens(t *testing.T) {
	first := New[string]().Start()
	second := first.Start()

	stale := Result[string]{Token: first.Token(), Value: "old"}
	fresh := Result[string]{Token: second.Token(), Value: "new"}

	got := second.Apply(stale)
	assert.Equal(t, Pending, got.State().Status())
	assert.False(t, second.Current(stale))

	got = got.Apply(fresh)
	v, ok := got.State().Value()
	require.True(t, ok)
	assert.Equal(t, "new", v)

	// A late stale result still cannot overwrite the settled state.
	got = got.Apply(stale)
	v, _ = got.State().Value()
	assert.Equal(t, "new", v)
}

func TestApplyOnNeverStartedTracker(t *testing.T) {
	tr := New[int]()
	got := tr.Apply(Result[int]{Token: 0, Value: 5})
	assert.Equal(t, NotStarted, got.State().Status())
}

func TestApplyFailureUsesDescription(t *testing.T) {
	tr := New[int]().Start()
	got := tr.Apply(Result[int]{Token: tr.Token(), Err: errors.New("network down")})

	msg, ok := got.State().Message()
	require.True(t, ok)
	assert.Equal(t, "network down", msg)
}

func TestDoCapturesOutcome(t *testing.T) {
	ctx := context.Background()
	tr := New[int]().Start()

	res := Do(ctx, tr.Token(), func(context.Context) (int, error) { return 42, nil })
	assert.Equal(t, tr.Token(), res.Token)
	assert.NoError(t, res.Err)
	assert.Equal(t, 42, res.Value)

	res = Do(ctx, tr.Token(), func(context.Context) (int, error) {
		return 0, fmt.Errorf("load orgs: %w", &Failure{Description: "permission denied"})
	})
	assert.Equal(t, "permission denied", Describe(res.Err))
}

func TestDoRecoversPanics(t *testing.T) {
	tests := []struct {
		name  string
		panic any
		want  string
	}{
		{"error value", errors.New("exploded"), "exploded"},
		{"string value", "bad input", "bad input"},
		{"opaque value", 42, UnknownError},
		{"nil failure", &Failure{}, UnknownError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := New[string]().Start()
			res := Do(context.Background(), tr.Token(), func(context.Context) (string, error) {
				panic(tc.panic)
			})
			require.Error(t, res.Err)
			tr = tr.Apply(res)
			msg, ok := tr.State().Message()
			require.True(t, ok)
			assert.Equal(t, tc.want, msg)
		})
	}
}

func TestRunReturnsResultMessage(t *testing.T) {
	tr := New[string]().Start()
	cmd := Run(context.Background(), tr.Token(), func(context.Context) (string, error) {
		return "", errors.New("network down")
	})

	msg := cmd()
	res, ok := msg.(Result[string])
	require.True(t, ok)

	tr = tr.Apply(res)
	got, _ := tr.State().Message()
	assert.Equal(t, "network down", got)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, UnknownError},
		{"plain", errors.New("network down"), "network down"},
		{"blank", errors.New("   "), UnknownError},
		{"failure description", &Failure{Description: "Group not found", Err: errors.New("404")}, "Group not found"},
		{"wrapped failure", fmt.Errorf("link: %w", &Failure{Description: "denied"}), "denied"},
		{"failure without description", &Failure{Err: errors.New("eof")}, "eof"},
		{"empty failure", &Failure{}, UnknownError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Describe(tc.err))
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "unknown", Status(99).String())
}
