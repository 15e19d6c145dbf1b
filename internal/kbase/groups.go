package kbase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/katistix/narratives/internal/narrative"
)

// Groups implements narrative.Groups against the groups REST service.
type Groups struct {
	client  *Client
	baseURL string
}

func NewGroups(client *Client, baseURL string) *Groups {
	return &Groups{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type groupJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LinkedGroups lists the Organizations wsID is linked to.
func (g *Groups) LinkedGroups(ctx context.Context, wsID int) ([]narrative.GroupInfo, error) {
	q := url.Values{}
	q.Set("resourcetype", "workspace")
	q.Set("resource", strconv.Itoa(wsID))

	var groups []groupJSON
	if err := g.client.Do(ctx, http.MethodGet, g.baseURL+"/group?"+q.Encode(), nil, &groups); err != nil {
		return nil, err
	}
	out := make([]narrative.GroupInfo, len(groups))
	for i, gr := range groups {
		out[i] = narrative.GroupInfo{ID: gr.ID, Name: gr.Name}
	}
	return out, nil
}

// UserGroups lists the Organizations the current user belongs to.
func (g *Groups) UserGroups(ctx context.Context) ([]narrative.GroupIdentity, error) {
	var groups []groupJSON
	if err := g.client.Do(ctx, http.MethodGet, g.baseURL+"/member", nil, &groups); err != nil {
		return nil, err
	}
	out := make([]narrative.GroupIdentity, len(groups))
	for i, gr := range groups {
		out[i] = narrative.GroupIdentity{ID: gr.ID}
	}
	return out, nil
}

// LinkToGroup adds wsID to groupID. Organizations that require approval
// answer with complete=false and a pending request.
func (g *Groups) LinkToGroup(ctx context.Context, wsID int, groupID string) (narrative.LinkOutcome, error) {
	endpoint := fmt.Sprintf("%s/group/%s/resource/workspace/%d", g.baseURL, url.PathEscape(groupID), wsID)
	var resp struct {
		Complete bool `json:"complete"`
	}
	if err := g.client.Do(ctx, http.MethodPost, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Complete {
		return narrative.LinkCompleted, nil
	}
	return narrative.LinkRequested, nil
}
