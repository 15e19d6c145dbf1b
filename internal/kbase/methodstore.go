package kbase

import (
	"context"
	"fmt"
	"strings"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

// MethodStore implements narrative.Icons against the method store.
type MethodStore struct {
	client   *Client
	endpoint string
	imageURL string
}

func NewMethodStore(client *Client, endpoint, imageURL string) *MethodStore {
	return &MethodStore{client: client, endpoint: endpoint, imageURL: strings.TrimRight(imageURL, "/")}
}

type briefInfo struct {
	ID   string `json:"id"`
	Icon *struct {
		URL string `json:"url"`
	} `json:"icon"`
}

// IconMetadata returns the icon of appID at tag. Apps without an image icon
// return an empty glyph icon so the caller can apply its default.
func (m *MethodStore) IconMetadata(ctx context.Context, appID, tag string) (narrative.IconInfo, error) {
	params := map[string]any{"ids": []string{appID}}
	if tag != "" {
		params["tag"] = tag
	}
	var result [][]*briefInfo
	if err := m.client.Call(ctx, m.endpoint, "NarrativeMethodStore.get_method_brief_info", []any{params}, &result); err != nil {
		return narrative.IconInfo{}, err
	}
	if len(result) == 0 || len(result[0]) == 0 || result[0][0] == nil {
		return narrative.IconInfo{}, &async.Failure{Description: fmt.Sprintf("App %s not found", appID), Err: ErrNotFound}
	}
	info := result[0][0]
	if info.Icon == nil || info.Icon.URL == "" {
		return narrative.IconInfo{}, nil
	}
	return narrative.IconInfo{IsImage: true, URL: m.imageURL + "/" + strings.TrimLeft(info.Icon.URL, "/")}, nil
}
