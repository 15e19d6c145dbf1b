package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

const (
	accessDeniedText = "You don't have permission to request to add this Narrative to an Organization."
	accessLevelText  = "Your access level is %s."
	noLinkedText     = "This Narrative is not linked to any Organization yet."
	noCandidatesText = "You are not a member of any other Organization this Narrative can be linked to."
	noMatchesText    = "No Organization matches the filter."
)

// orgMenu links one Narrative to Organizations. The load tracker gates the
// whole body; the link tracker is only shown inside its success branch.
type orgMenu struct {
	target narrative.Narrative
	load   async.Tracker[narrative.OrgData]
	link   async.Tracker[narrative.LinkOutcome]
	filter textinput.Model
	cursor int
	orgURL func(id string) string
}

// newOrgMenu opens the menu for n and starts loading its org data.
func newOrgMenu(ctx context.Context, b backend, n narrative.Narrative, orgURL func(string) string) (orgMenu, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = "filter organizations"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Focus()

	m := orgMenu{target: n, filter: ti, orgURL: orgURL}
	m.load = m.load.Start()
	return m, tea.Batch(loadOrgsCmd(ctx, b, m.load.Token(), n.WorkspaceID), textinput.Blink)
}

// groupSource adapts candidates to fuzzy.Source.
type groupSource []narrative.GroupIdentity

func (s groupSource) String(i int) string { return s[i].ID }
func (s groupSource) Len() int            { return len(s) }

// visible returns the candidates matching the filter: all of them in load
// order when the filter is empty, best match first otherwise.
func (m orgMenu) visible() []narrative.GroupIdentity {
	data, ok := m.load.State().Value()
	if !ok {
		return nil
	}
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		return data.Candidates
	}
	matches := fuzzy.FindFrom(query, groupSource(data.Candidates))
	out := make([]narrative.GroupIdentity, len(matches))
	for i, match := range matches {
		out[i] = data.Candidates[match.Index]
	}
	return out
}

// Update handles results and keys for the menu. closed is true when the user
// dismissed it.
func (m orgMenu) Update(ctx context.Context, b backend, msg tea.Msg) (_ orgMenu, cmd tea.Cmd, closed bool) {
	switch msg := msg.(type) {
	case async.Result[narrative.OrgData]:
		m.load = m.load.Apply(msg)
		m.clampCursor()
		return m, nil, false

	case async.Result[narrative.LinkOutcome]:
		if !m.link.Current(msg) {
			return m, nil, false
		}
		m.link = m.link.Apply(msg)
		if msg.Err == nil {
			// Refresh so the new link moves out of the candidate list.
			m.load = m.load.Start()
			return m, loadOrgsCmd(ctx, b, m.load.Token(), m.target.WorkspaceID), false
		}
		return m, nil, false

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, nil, true
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil, false
		case "down", "ctrl+n":
			m.cursor++
			m.clampCursor()
			return m, nil, false
		case "enter":
			return m.submit(ctx, b)
		}
	}

	prev := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != prev {
		m.cursor = 0
	}
	return m, cmd, false
}

// submit links the highlighted candidate. It is a no-op unless org data is
// loaded, the user is an admin, and no link is already in flight.
func (m orgMenu) submit(ctx context.Context, b backend) (orgMenu, tea.Cmd, bool) {
	data, ok := m.load.State().Value()
	if !ok || !data.Permission.IsAdmin() || m.link.State().Status() == async.Pending {
		return m, nil, false
	}
	visible := m.visible()
	if m.cursor >= len(visible) {
		return m, nil, false
	}
	m.link = m.link.Start()
	return m, linkCmd(ctx, b, m.link.Token(), m.target.WorkspaceID, visible[m.cursor].ID), false
}

func (m *orgMenu) clampCursor() {
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m orgMenu) View(spin string) string {
	var b strings.Builder
	b.WriteString(detailTitleStyle.Render("Organizations · " + m.target.Title))
	b.WriteString("\n\n")
	b.WriteString(async.Render(m.load.State(), async.Views[narrative.OrgData]{
		Pending: pendingView(spin, "Loading Organizations..."),
		Failed:  failedView,
		Succeeded: func(data narrative.OrgData) string {
			return renderOrgData(data, m.orgURL, m.visible(), m.cursor, m.filter.View(), m.link.State(), spin)
		},
	}))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: select • enter: link • type to filter • esc: close"))
	return b.String()
}

// renderOrgData is the load tracker's success branch. Non-admins get the
// access-denied explanation whatever else the payload holds. orgURL may be
// nil, in which case linked Organizations are listed without their address.
func renderOrgData(data narrative.OrgData, orgURL func(string) string, visible []narrative.GroupIdentity, cursor int, filterView string, link async.State[narrative.LinkOutcome], spin string) string {
	if !data.Permission.IsAdmin() {
		return renderWarning(accessDeniedText) + "\n" + mutedStyle.Render(fmt.Sprintf(accessLevelText, data.Permission.String()))
	}

	var b strings.Builder
	b.WriteString(detailAttrStyle.Render("Linked Organizations"))
	b.WriteString("\n")
	if len(data.Linked) == 0 {
		b.WriteString(mutedStyle.Render(noLinkedText))
		b.WriteString("\n")
	}
	for _, g := range data.Linked {
		fmt.Fprintf(&b, "  %s %s\n", g.Name, mutedStyle.Render(g.ID))
		if orgURL != nil {
			fmt.Fprintf(&b, "    %s\n", successStyle.Render(orgURL(g.ID)))
		}
	}

	b.WriteString("\n")
	b.WriteString(detailAttrStyle.Render("Link to an Organization"))
	b.WriteString("\n")
	switch {
	case len(data.Candidates) == 0:
		b.WriteString(mutedStyle.Render(noCandidatesText))
		b.WriteString("\n")
	default:
		if filterView != "" {
			b.WriteString(filterView)
			b.WriteString("\n")
		}
		if len(visible) == 0 {
			b.WriteString(mutedStyle.Render(noMatchesText))
			b.WriteString("\n")
		}
		for i, g := range visible {
			if i == cursor {
				fmt.Fprintf(&b, "%s %s\n", cursorStyle.Render("›"), cursorStyle.Render(g.ID))
				continue
			}
			fmt.Fprintf(&b, "  %s\n", g.ID)
		}
	}

	if status := renderLinkState(link, spin); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
		b.WriteString("\n")
	}
	return b.String()
}

// renderOrgReport is the non-interactive form of the menu body: no filter,
// no cursor, no link in progress.
func renderOrgReport(s async.State[narrative.OrgData], orgURL func(string) string) string {
	return async.Render(s, async.Views[narrative.OrgData]{
		Pending: func() string { return "" },
		Failed:  failedView,
		Succeeded: func(data narrative.OrgData) string {
			return renderOrgData(data, orgURL, data.Candidates, -1, "", async.State[narrative.LinkOutcome]{}, "")
		},
	})
}

func renderLinkState(s async.State[narrative.LinkOutcome], spin string) string {
	return async.Render(s, async.Views[narrative.LinkOutcome]{
		NotStarted: func() string { return "" },
		Pending:    pendingView(spin, "Linking..."),
		Failed:     failedView,
		Succeeded: func(o narrative.LinkOutcome) string {
			return successStyle.Render(o.Message())
		},
	})
}
