package kbase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

const (
	narrativeType  = "KBaseNarrative.Narrative"
	wsTimeLayout   = "2006-01-02T15:04:05-0700"
	appMetaPrefix  = "method."
	appCellPrefix  = "app."
	defaultAppTag  = "release"
	metaNarrative  = "narrative"
	metaNiceName   = "narrative_nice_name"
	metaTemporary  = "is_temporary"
	globalReadUser = "*"
)

// Workspace implements narrative.Permissions and narrative.Catalog against the
// workspace JSON-RPC service.
type Workspace struct {
	client   *Client
	endpoint string
	auth     *Auth
}

func NewWorkspace(client *Client, endpoint string, auth *Auth) *Workspace {
	return &Workspace{client: client, endpoint: endpoint, auth: auth}
}

// Permission returns the current user's level on wsID, falling back to the
// global read entry and then to none.
func (w *Workspace) Permission(ctx context.Context, wsID int) (narrative.Permission, error) {
	user, perms, err := w.permissions(ctx, wsID)
	if err != nil {
		return "", err
	}
	if p, ok := perms[user]; ok {
		return narrative.Permission(p), nil
	}
	if p, ok := perms[globalReadUser]; ok {
		return narrative.Permission(p), nil
	}
	return narrative.PermNone, nil
}

// SharedWith lists the users, other than the caller and the owner, who hold
// any access to n. The global read entry is not a user and is skipped.
func (w *Workspace) SharedWith(ctx context.Context, n narrative.Narrative) ([]string, error) {
	user, perms, err := w.permissions(ctx, n.WorkspaceID)
	if err != nil {
		return nil, err
	}
	var out []string
	for name, p := range perms {
		if name == user || name == n.Owner || name == globalReadUser || narrative.Permission(p) == narrative.PermNone {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// permissions returns the caller's username and the permission map of wsID.
func (w *Workspace) permissions(ctx context.Context, wsID int) (string, map[string]string, error) {
	user, err := w.auth.Whoami(ctx)
	if err != nil {
		return "", nil, err
	}

	params := map[string]any{"workspaces": []map[string]any{{"id": wsID}}}
	var result []struct {
		Perms []map[string]string `json:"perms"`
	}
	if err := w.client.Call(ctx, w.endpoint, "Workspace.get_permissions_mass", []any{params}, &result); err != nil {
		return "", nil, err
	}
	if len(result) == 0 || len(result[0].Perms) == 0 {
		return user, nil, nil
	}
	return user, result[0].Perms[0], nil
}

// ListNarratives lists every readable workspace that holds a Narrative,
// most recently saved first. Publicly readable workspaces the user has no
// explicit access to are excluded.
func (w *Workspace) ListNarratives(ctx context.Context) ([]narrative.Narrative, error) {
	params := map[string]any{
		"perm":          "r",
		"excludeGlobal": 1,
		"meta":          map[string]string{metaTemporary: "false"},
	}
	var result [][][]json.RawMessage
	if err := w.client.Call(ctx, w.endpoint, "Workspace.list_workspace_info", []any{params}, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	out := make([]narrative.Narrative, 0, len(result[0]))
	for _, tuple := range result[0] {
		n, ok, err := parseWorkspaceInfo(tuple)
		if err != nil {
			return nil, &async.Failure{Description: "Invalid workspace listing", Err: err}
		}
		if ok {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastSaved.After(out[j].LastSaved) })
	return out, nil
}

// Summary reads the Narrative object's latest version and its first version
// in one call. The first version's save date is the creation date.
func (w *Workspace) Summary(ctx context.Context, n narrative.Narrative) (narrative.Summary, error) {
	ref := n.Ref()
	params := map[string]any{
		"objects":         []map[string]string{{"ref": ref}, {"ref": ref + "/1"}},
		"includeMetadata": 1,
		"ignoreErrors":    1,
	}
	var result []struct {
		Infos [][]json.RawMessage `json:"infos"`
	}
	if err := w.client.Call(ctx, w.endpoint, "Workspace.get_object_info3", []any{params}, &result); err != nil {
		return narrative.Summary{}, err
	}
	if len(result) == 0 || len(result[0].Infos) == 0 || result[0].Infos[0] == nil {
		return narrative.Summary{}, &async.Failure{Description: fmt.Sprintf("Narrative %s not found", ref), Err: ErrNotFound}
	}
	latest, err := parseObjectInfo(result[0].Infos[0])
	if err != nil {
		return narrative.Summary{}, &async.Failure{Description: "Invalid Narrative metadata", Err: err}
	}

	s := narrative.Summary{
		Version: latest.version,
		Created: latest.Saved,
		Cells:   cellsFromMeta(latest.meta),
		Apps:    appsFromMeta(latest.meta),
	}
	if len(result[0].Infos) > 1 && result[0].Infos[1] != nil {
		if first, err := parseObjectInfo(result[0].Infos[1]); err == nil {
			s.Created = first.Saved
		}
	}
	return s, nil
}

// DataObjects lists the data objects in wsID, excluding the Narrative itself.
func (w *Workspace) DataObjects(ctx context.Context, wsID int) ([]narrative.DataObject, error) {
	params := map[string]any{"ids": []int{wsID}}
	var result [][][]json.RawMessage
	if err := w.client.Call(ctx, w.endpoint, "Workspace.list_objects", []any{params}, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	out := make([]narrative.DataObject, 0, len(result[0]))
	for _, tuple := range result[0] {
		obj, err := parseObjectInfo(tuple)
		if err != nil {
			return nil, &async.Failure{Description: "Invalid object listing", Err: err}
		}
		if strings.HasPrefix(obj.Type, narrativeType) {
			continue
		}
		out = append(out, obj.DataObject)
	}
	return out, nil
}

// parseWorkspaceInfo decodes a workspace_info tuple. ok is false for
// workspaces without a Narrative.
func parseWorkspaceInfo(t []json.RawMessage) (narrative.Narrative, bool, error) {
	var n narrative.Narrative
	if len(t) < 9 {
		return n, false, fmt.Errorf("workspace_info has %d fields, want 9", len(t))
	}
	var (
		moddate, perm, global string
		meta                  map[string]string
	)
	if err := decodeAll(
		field{t[0], &n.WorkspaceID},
		field{t[2], &n.Owner},
		field{t[3], &moddate},
		field{t[5], &perm},
		field{t[6], &global},
		field{t[8], &meta},
	); err != nil {
		return n, false, err
	}
	objID, err := strconv.Atoi(meta[metaNarrative])
	if err != nil || objID <= 0 {
		return n, false, nil
	}
	n.ObjectID = objID
	n.Title = meta[metaNiceName]
	if n.Title == "" {
		n.Title = "Untitled"
	}
	n.Permission = narrative.Permission(perm)
	n.Public = global == "r"
	n.LastSaved, _ = time.Parse(wsTimeLayout, moddate)
	return n, true, nil
}

type objectInfo struct {
	narrative.DataObject
	version int
	meta    map[string]string
}

// parseObjectInfo decodes an object_info tuple.
func parseObjectInfo(t []json.RawMessage) (objectInfo, error) {
	var o objectInfo
	if len(t) < 11 {
		return o, fmt.Errorf("object_info has %d fields, want 11", len(t))
	}
	var saved string
	if err := decodeAll(
		field{t[0], &o.ObjectID},
		field{t[1], &o.Name},
		field{t[2], &o.Type},
		field{t[3], &saved},
		field{t[4], &o.version},
		field{t[5], &o.SavedBy},
		field{t[10], &o.meta},
	); err != nil {
		return o, err
	}
	o.Saved, _ = time.Parse(wsTimeLayout, saved)
	return o, nil
}

// cellsFromMeta counts cells from the Narrative's metadata. Markdown and
// code cells are recorded per key, app cells as a count per app id.
func cellsFromMeta(meta map[string]string) narrative.Cells {
	var c narrative.Cells
	for key, value := range meta {
		switch {
		case key == "ipython.markdown" || key == "jupyter.markdown":
			c.Markdown += metaCount(value)
		case key == "ipython.code" || key == "jupyter.code":
			c.Code += metaCount(value)
		case strings.HasPrefix(key, appMetaPrefix) || strings.HasPrefix(key, appCellPrefix):
			c.App += metaCount(value)
		}
	}
	return c
}

func metaCount(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// appsFromMeta reads "method.<module>/<name>.<tag>" keys.
func appsFromMeta(meta map[string]string) []narrative.AppRef {
	var refs []narrative.AppRef
	for key := range meta {
		if !strings.HasPrefix(key, appMetaPrefix) {
			continue
		}
		id := strings.TrimPrefix(key, appMetaPrefix)
		tag := defaultAppTag
		if i := strings.LastIndex(id, "."); i > strings.Index(id, "/") {
			id, tag = id[:i], id[i+1:]
		}
		if id == "" {
			continue
		}
		refs = append(refs, narrative.AppRef{ID: id, Tag: tag})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Tag < refs[j].Tag
	})
	return refs
}

type field struct {
	raw json.RawMessage
	dst any
}

func decodeAll(fields ...field) error {
	for _, f := range fields {
		if len(f.raw) == 0 || string(f.raw) == "null" {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return err
		}
	}
	return nil
}
