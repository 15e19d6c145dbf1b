// Package fixture serves the dashboard from a YAML file instead of the
// platform services, for offline use and demos.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

// File is the YAML document layout.
type File struct {
	User       string            `yaml:"user"`
	Latency    time.Duration     `yaml:"latency"`
	Narratives []NarrativeEntry  `yaml:"narratives"`
	Groups     []GroupEntry      `yaml:"groups"`
	Icons      map[string]Icon   `yaml:"icons"`
	Fail       map[string]string `yaml:"fail"`
}

type NarrativeEntry struct {
	ID          int               `yaml:"id"`
	Object      int               `yaml:"object"`
	Title       string            `yaml:"title"`
	Owner       string            `yaml:"owner"`
	Saved       time.Time         `yaml:"saved"`
	Public      bool              `yaml:"public"`
	Version     int               `yaml:"version"`
	Created     time.Time         `yaml:"created"`
	Cells       *CellsEntry       `yaml:"cells"`
	Permissions map[string]string `yaml:"permissions"`
	Apps        []AppEntry        `yaml:"apps"`
	Objects     []ObjectEntry     `yaml:"objects"`
}

// CellsEntry overrides the cell counts. Without it every app counts as one
// app cell.
type CellsEntry struct {
	App      int `yaml:"app"`
	Markdown int `yaml:"markdown"`
	Code     int `yaml:"code"`
	Other    int `yaml:"other"`
}

type AppEntry struct {
	ID  string `yaml:"id"`
	Tag string `yaml:"tag"`
}

type ObjectEntry struct {
	ID      int       `yaml:"id"`
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	SavedBy string    `yaml:"saved_by"`
	Saved   time.Time `yaml:"saved"`
}

type GroupEntry struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Members    []string `yaml:"members"`
	Approval   bool     `yaml:"approval"`
	Narratives []int    `yaml:"narratives"`
}

type Icon struct {
	Image string `yaml:"image"`
	Glyph string `yaml:"glyph"`
	Color string `yaml:"color"`
}

// Operation names accepted as keys of the fail map.
const (
	OpNarratives   = "narratives"
	OpSummary      = "summary"
	OpShared       = "shared"
	OpObjects      = "objects"
	OpPermission   = "permission"
	OpLinkedGroups = "linked_groups"
	OpUserGroups   = "user_groups"
	OpLink         = "link"
	OpIcons        = "icons"
)

var errUnknownNarrative = errors.New("unknown narrative")

// Backend implements every collaborator interface from one File. Links made
// through LinkToGroup are kept in memory.
type Backend struct {
	mu       sync.Mutex
	file     File
	requests map[string][]int
}

// Load reads and parses a fixture file.
func Load(path string) (*Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse builds a Backend from YAML.
func Parse(data []byte) (*Backend, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.User == "" {
		return nil, errors.New("parse fixture: user is required")
	}
	seen := make(map[int]bool, len(f.Narratives))
	for _, n := range f.Narratives {
		if seen[n.ID] {
			return nil, fmt.Errorf("parse fixture: duplicate narrative %d", n.ID)
		}
		seen[n.ID] = true
	}
	return &Backend{file: f, requests: make(map[string][]int)}, nil
}

// wait simulates latency and injected failures for op.
func (b *Backend) wait(ctx context.Context, op string) error {
	if b.file.Latency > 0 {
		t := time.NewTimer(b.file.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if msg, ok := b.file.Fail[op]; ok {
		return &async.Failure{Description: msg}
	}
	return nil
}

func (b *Backend) narrativeEntry(wsID int) (NarrativeEntry, error) {
	for _, n := range b.file.Narratives {
		if n.ID == wsID {
			return n, nil
		}
	}
	return NarrativeEntry{}, &async.Failure{Description: fmt.Sprintf("Narrative workspace %d not found", wsID), Err: errUnknownNarrative}
}

func (b *Backend) ListNarratives(ctx context.Context) ([]narrative.Narrative, error) {
	if err := b.wait(ctx, OpNarratives); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]narrative.Narrative, 0, len(b.file.Narratives))
	for _, n := range b.file.Narratives {
		perm := b.permissionLocked(n)
		if perm == narrative.PermNone {
			continue
		}
		out = append(out, narrative.Narrative{
			WorkspaceID: n.ID,
			ObjectID:    n.Object,
			Title:       n.Title,
			Owner:       n.Owner,
			LastSaved:   n.Saved,
			Permission:  perm,
			Public:      n.Public,
		})
	}
	slices.SortStableFunc(out, func(a, c narrative.Narrative) int { return c.LastSaved.Compare(a.LastSaved) })
	return out, nil
}

// Summary defaults the version to 1 and the creation date to the last save.
func (b *Backend) Summary(ctx context.Context, n narrative.Narrative) (narrative.Summary, error) {
	if err := b.wait(ctx, OpSummary); err != nil {
		return narrative.Summary{}, err
	}
	entry, err := b.narrativeEntry(n.WorkspaceID)
	if err != nil {
		return narrative.Summary{}, err
	}
	s := narrative.Summary{
		Version: max(entry.Version, 1),
		Created: entry.Created,
		Apps:    make([]narrative.AppRef, len(entry.Apps)),
	}
	if s.Created.IsZero() {
		s.Created = entry.Saved
	}
	for i, a := range entry.Apps {
		tag := a.Tag
		if tag == "" {
			tag = "release"
		}
		s.Apps[i] = narrative.AppRef{ID: a.ID, Tag: tag}
	}
	if c := entry.Cells; c != nil {
		s.Cells = narrative.Cells{App: c.App, Markdown: c.Markdown, Code: c.Code, Other: c.Other}
	} else {
		s.Cells.App = len(entry.Apps)
	}
	return s, nil
}

// SharedWith lists users other than the caller and the owner holding access.
func (b *Backend) SharedWith(ctx context.Context, n narrative.Narrative) ([]string, error) {
	if err := b.wait(ctx, OpShared); err != nil {
		return nil, err
	}
	entry, err := b.narrativeEntry(n.WorkspaceID)
	if err != nil {
		return nil, err
	}
	var out []string
	for user, p := range entry.Permissions {
		if user == b.file.User || user == entry.Owner || narrative.Permission(p) == narrative.PermNone {
			continue
		}
		out = append(out, user)
	}
	slices.Sort(out)
	return out, nil
}

func (b *Backend) DataObjects(ctx context.Context, wsID int) ([]narrative.DataObject, error) {
	if err := b.wait(ctx, OpObjects); err != nil {
		return nil, err
	}
	entry, err := b.narrativeEntry(wsID)
	if err != nil {
		return nil, err
	}
	out := make([]narrative.DataObject, len(entry.Objects))
	for i, o := range entry.Objects {
		out[i] = narrative.DataObject{ObjectID: o.ID, Name: o.Name, Type: o.Type, SavedBy: o.SavedBy, Saved: o.Saved}
	}
	return out, nil
}

func (b *Backend) Permission(ctx context.Context, wsID int) (narrative.Permission, error) {
	if err := b.wait(ctx, OpPermission); err != nil {
		return "", err
	}
	entry, err := b.narrativeEntry(wsID)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.permissionLocked(entry), nil
}

func (b *Backend) permissionLocked(n NarrativeEntry) narrative.Permission {
	if n.Owner == b.file.User {
		return narrative.PermAdmin
	}
	if p, ok := n.Permissions[b.file.User]; ok {
		return narrative.Permission(p)
	}
	if n.Public {
		return narrative.PermRead
	}
	return narrative.PermNone
}

func (b *Backend) LinkedGroups(ctx context.Context, wsID int) ([]narrative.GroupInfo, error) {
	if err := b.wait(ctx, OpLinkedGroups); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []narrative.GroupInfo
	for _, g := range b.file.Groups {
		if slices.Contains(g.Narratives, wsID) {
			out = append(out, narrative.GroupInfo{ID: g.ID, Name: g.Name})
		}
	}
	return out, nil
}

func (b *Backend) UserGroups(ctx context.Context) ([]narrative.GroupIdentity, error) {
	if err := b.wait(ctx, OpUserGroups); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []narrative.GroupIdentity
	for _, g := range b.file.Groups {
		if slices.Contains(g.Members, b.file.User) {
			out = append(out, narrative.GroupIdentity{ID: g.ID})
		}
	}
	return out, nil
}

func (b *Backend) LinkToGroup(ctx context.Context, wsID int, groupID string) (narrative.LinkOutcome, error) {
	if err := b.wait(ctx, OpLink); err != nil {
		return 0, err
	}
	if _, err := b.narrativeEntry(wsID); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.file.Groups {
		g := &b.file.Groups[i]
		if g.ID != groupID {
			continue
		}
		if !slices.Contains(g.Members, b.file.User) {
			return 0, &async.Failure{Description: "You are not a member of this Organization"}
		}
		if slices.Contains(g.Narratives, wsID) {
			return 0, &async.Failure{Description: "This Narrative is already linked to the Organization"}
		}
		if g.Approval {
			if !slices.Contains(b.requests[groupID], wsID) {
				b.requests[groupID] = append(b.requests[groupID], wsID)
			}
			return narrative.LinkRequested, nil
		}
		g.Narratives = append(g.Narratives, wsID)
		return narrative.LinkCompleted, nil
	}
	return 0, &async.Failure{Description: fmt.Sprintf("Organization %s not found", groupID)}
}

func (b *Backend) IconMetadata(ctx context.Context, appID, _ string) (narrative.IconInfo, error) {
	if err := b.wait(ctx, OpIcons); err != nil {
		return narrative.IconInfo{}, err
	}
	icon, ok := b.file.Icons[appID]
	if !ok {
		return narrative.IconInfo{}, &async.Failure{Description: fmt.Sprintf("App %s not found", appID)}
	}
	if icon.Image != "" {
		return narrative.IconInfo{IsImage: true, URL: icon.Image}, nil
	}
	return narrative.IconInfo{Icon: icon.Glyph, Color: icon.Color}, nil
}
