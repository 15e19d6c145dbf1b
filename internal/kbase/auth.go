package kbase

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Auth resolves the user that owns the configured token. The username is
// fetched once and reused.
type Auth struct {
	client  *Client
	baseURL string

	flight singleflight.Group
	mu     sync.Mutex
	user   string
}

func NewAuth(client *Client, baseURL string) *Auth {
	return &Auth{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Whoami returns the username for the token. Concurrent callers share one
// request; a caller whose context ends stops waiting without cancelling it.
func (a *Auth) Whoami(ctx context.Context) (string, error) {
	a.mu.Lock()
	user := a.user
	a.mu.Unlock()
	if user != "" {
		return user, nil
	}

	ch := a.flight.DoChan("me", func() (any, error) {
		var me struct {
			User string `json:"user"`
		}
		if err := a.client.Do(context.WithoutCancel(ctx), http.MethodGet, a.baseURL+"/api/V2/me", nil, &me); err != nil {
			return "", err
		}
		a.mu.Lock()
		a.user = me.User
		a.mu.Unlock()
		return me.User, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
