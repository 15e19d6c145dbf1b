package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

// Renderers here are pure: the same state always yields the same string.

func renderWarning(msg string) string {
	return warningBoxStyle.Render("⚠ " + msg)
}

func renderPending(spin, caption string) string {
	return spin + " " + pendingStyle.Render(caption)
}

// pendingView and failedView are the shared Pending and Failed branches.
func pendingView(spin, caption string) func() string {
	return func() string { return renderPending(spin, caption) }
}

func failedView(msg string) string { return renderWarning(msg) }

func renderIcon(icon narrative.IconInfo) string {
	if icon.IsImage {
		return detailValStyle.Render("▣")
	}
	color := icon.Color
	if color == "" {
		color = narrative.DefaultIcon.Color
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

func renderSaved(n narrative.Narrative) string {
	if n.LastSaved.IsZero() {
		return "unknown"
	}
	return humanize.Time(n.LastSaved)
}

// renderDetail draws the detail pane for the selected Narrative.
func renderDetail(n narrative.Narrative, state async.State[narrative.Detail], spin, narrativeURL string, copied bool) string {
	var b strings.Builder
	b.WriteString(detailTitleStyle.Render(n.Title))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s: %s\n", detailAttrStyle.Render("Owner"), detailValStyle.Render(n.Owner))
	fmt.Fprintf(&b, "%s: %s\n", detailAttrStyle.Render("Last saved"), detailValStyle.Render(renderSaved(n)))
	fmt.Fprintf(&b, "%s: %s\n", detailAttrStyle.Render("Your access"), detailValStyle.Render(n.Permission.String()))
	if n.Public {
		fmt.Fprintf(&b, "%s: %s\n", detailAttrStyle.Render("Visibility"), detailValStyle.Render("public"))
	}

	copyStatus := ""
	if copied {
		copyStatus = " " + copySuccessStyle.Render("Copied!")
	}
	fmt.Fprintf(&b, "%s:%s\n%s\n\n", detailAttrStyle.Render("URL"), copyStatus, successStyle.Render(narrativeURL))

	b.WriteString(async.Render(state, async.Views[narrative.Detail]{
		Pending:   pendingView(spin, "Loading Narrative contents..."),
		Failed:    failedView,
		Succeeded: renderDetailContents,
	}))
	return b.String()
}

func renderDetailContents(d narrative.Detail) string {
	var b strings.Builder
	attr := func(name, value string) {
		fmt.Fprintf(&b, "%s: %s\n", detailAttrStyle.Render(name), detailValStyle.Render(value))
	}
	attr("Version", fmt.Sprint(d.Version))
	if !d.Created.IsZero() {
		attr("Created", humanize.Time(d.Created))
	}
	attr("Cells", fmt.Sprintf("%d (%d app, %d markdown, %d code)", d.Cells.Total(), d.Cells.App, d.Cells.Markdown, d.Cells.Code))
	attr("Data objects", fmt.Sprint(len(d.Objects)))
	if !d.Narrative.Public && len(d.SharedWith) > 0 {
		attr("Shared with", strings.Join(d.SharedWith, ", "))
	}

	b.WriteString("\n")
	b.WriteString(detailAttrStyle.Render(fmt.Sprintf("Apps (%d)", len(d.Apps))))
	b.WriteString("\n")
	if len(d.Apps) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, app := range d.Apps {
		fmt.Fprintf(&b, "  %s %s %s\n", renderIcon(app.Icon), appName(app.ID), mutedStyle.Render(app.ID+" "+app.Tag))
	}

	b.WriteString("\n")
	b.WriteString(detailAttrStyle.Render(fmt.Sprintf("Data objects (%d)", len(d.Objects))))
	b.WriteString("\n")
	if len(d.Objects) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, obj := range d.Objects {
		fmt.Fprintf(&b, "  %s %s\n", obj.Name, renderType(obj.Type))
	}
	return b.String()
}

// appName turns "module/run_thing" into "Run thing".
func appName(id string) string {
	name := id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		name = id[i+1:]
	}
	if pretty := narrative.FormatSnakeCase(name); pretty != "" {
		return pretty
	}
	return id
}

// renderType shows the readable type name with its module muted. Types that
// do not parse are shown as stored.
func renderType(fullType string) string {
	name, err := narrative.ReadableTypeName(fullType)
	if err != nil {
		return mutedStyle.Render(fullType)
	}
	return detailValStyle.Render(name) + " " + mutedStyle.Render(narrative.TypeModule(fullType))
}
