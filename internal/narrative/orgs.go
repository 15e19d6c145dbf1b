package narrative

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// GroupIdentity identifies an Organization.
type GroupIdentity struct {
	ID string
}

// GroupInfo is an Organization a Narrative is linked to.
type GroupInfo struct {
	ID   string
	Name string
}

// LinkOutcome reports whether a link took effect or is awaiting approval.
type LinkOutcome int

const (
	LinkCompleted LinkOutcome = iota
	LinkRequested
)

func (o LinkOutcome) String() string {
	switch o {
	case LinkCompleted:
		return "completed"
	case LinkRequested:
		return "requested"
	default:
		return fmt.Sprintf("LinkOutcome(%d)", int(o))
	}
}

// Message is the user-facing confirmation for the outcome.
func (o LinkOutcome) Message() string {
	if o == LinkRequested {
		return "A request to link this Narrative has been sent to the Organization admins."
	}
	return "The Narrative has been successfully linked."
}

// Permissions resolves the caller's permission on a Narrative's workspace.
type Permissions interface {
	Permission(ctx context.Context, wsID int) (Permission, error)
}

// Groups talks to the Organization directory.
type Groups interface {
	LinkedGroups(ctx context.Context, wsID int) ([]GroupInfo, error)
	UserGroups(ctx context.Context) ([]GroupIdentity, error)
	LinkToGroup(ctx context.Context, wsID int, groupID string) (LinkOutcome, error)
}

// OrgData is the payload of the org menu's load operation.
type OrgData struct {
	Permission Permission
	Linked     []GroupInfo
	Candidates []GroupIdentity
}

// CandidateGroups returns the groups in all that are not already linked,
// keeping the order of all.
func CandidateGroups(linked []GroupInfo, all []GroupIdentity) []GroupIdentity {
	seen := make(map[string]struct{}, len(linked))
	for _, g := range linked {
		seen[g.ID] = struct{}{}
	}
	out := make([]GroupIdentity, 0, len(all))
	for _, g := range all {
		if _, ok := seen[g.ID]; ok {
			continue
		}
		out = append(out, g)
	}
	return out
}

// LoadOrgData fetches the permission, linked groups and user groups for a
// Narrative concurrently. The first failure cancels the remaining calls.
func LoadOrgData(ctx context.Context, perms Permissions, groups Groups, wsID int) (OrgData, error) {
	var (
		perm   Permission
		linked []GroupInfo
		mine   []GroupIdentity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		perm, err = perms.Permission(gctx, wsID)
		return err
	})
	g.Go(func() (err error) {
		linked, err = groups.LinkedGroups(gctx, wsID)
		return err
	})
	g.Go(func() (err error) {
		mine, err = groups.UserGroups(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return OrgData{}, err
	}
	return OrgData{
		Permission: perm,
		Linked:     linked,
		Candidates: CandidateGroups(linked, mine),
	}, nil
}
