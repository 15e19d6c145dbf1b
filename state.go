package main

import (
	"context"

	"github.com/katistix/narratives/internal/narrative"
)

// --- STATE MANAGEMENT ---

// backend bundles the collaborators the dashboard calls. Both the platform
// clients and the offline fixture satisfy every interface.
type backend struct {
	catalog narrative.Catalog
	perms   narrative.Permissions
	groups  narrative.Groups
	icons   narrative.Icons
}

// loadOrgs is the org menu's load operation for wsID.
func (b backend) loadOrgs(wsID int) func(context.Context) (narrative.OrgData, error) {
	return func(ctx context.Context) (narrative.OrgData, error) {
		return narrative.LoadOrgData(ctx, b.perms, b.groups, wsID)
	}
}

// link is the org menu's submit operation.
func (b backend) link(wsID int, groupID string) func(context.Context) (narrative.LinkOutcome, error) {
	return func(ctx context.Context) (narrative.LinkOutcome, error) {
		return b.groups.LinkToGroup(ctx, wsID, groupID)
	}
}

// pane identifies which part of the screen receives key presses.
type pane int

const (
	paneList pane = iota
	paneOrgMenu
)
