package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

// --- BUBBLE TEA MODEL & ITEMS ---

// item is one Narrative in the list.
type item struct {
	n narrative.Narrative
}

// Implement list.Item interface for item.
func (i item) Title() string { return i.n.Title }

func (i item) Description() string {
	desc := fmt.Sprintf("%s · %s", i.n.Owner, renderSaved(i.n))
	if i.n.Permission.IsAdmin() {
		return desc + " · " + successStyle.Render("admin")
	}
	return desc
}

func (i item) FilterValue() string { return i.n.Title + " " + i.n.Owner }

// --- MAIN MODEL ---
type model struct {
	ctx     context.Context
	cfg     Config
	backend backend
	log     *zap.Logger

	list    list.Model
	spinner spinner.Model
	focus   pane

	narratives async.Tracker[[]narrative.Narrative]
	detail     async.Tracker[narrative.Detail]
	detailFor  int
	menu       orgMenu

	showCopied bool
	copyErr    string
}

func initialModel(ctx context.Context, cfg Config, b backend, log *zap.Logger) model {
	delegate := list.NewDefaultDelegate()
	selectedStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(narrativeBlue).
		Foreground(narrativeBlue).
		Padding(0, 0, 0, 1)

	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = selectedStyle.Foreground(lipgloss.Color("250")).Faint(true)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Narratives"
	l.Styles.Title = titleStyle
	l.SetShowHelp(false) // We render our own help.

	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))))

	m := model{ctx: ctx, cfg: cfg, backend: b, log: log, list: l, spinner: s}
	// Init cannot update the model, so the list load is started here.
	m.narratives = m.narratives.Start()
	return m
}

// --- BUBBLE TEA LOGIC ---
func (m model) Init() tea.Cmd {
	return tea.Batch(loadNarrativesCmd(m.ctx, m.backend, m.narratives.Token()), m.spinner.Tick)
}

func (m model) startList() (model, tea.Cmd) {
	m.narratives = m.narratives.Start()
	return m, loadNarrativesCmd(m.ctx, m.backend, m.narratives.Token())
}

// selectDetail starts loading the selected Narrative's contents if the
// selection changed.
func (m model) selectDetail() (model, tea.Cmd) {
	sel, ok := m.list.SelectedItem().(item)
	if !ok || sel.n.WorkspaceID == m.detailFor {
		return m, nil
	}
	m.detailFor = sel.n.WorkspaceID
	m.detail = m.detail.Start()
	m.showCopied = false
	return m, loadDetailCmd(m.ctx, m.backend, m.log, m.detail.Token(), sel.n)
}

//nolint:cyclop
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		listWidth := int(float32(msg.Width-h) * 0.4)
		m.list.SetSize(listWidth, msg.Height-v-3)
		return m, nil

	case async.Result[[]narrative.Narrative]:
		m.narratives = m.narratives.Apply(msg)
		ns, ok := m.narratives.State().Value()
		if !ok {
			return m, nil
		}
		items := make([]list.Item, len(ns))
		for i, n := range ns {
			items[i] = item{n: n}
		}
		cmd := m.list.SetItems(items)
		m.detailFor = 0
		var detailCmd tea.Cmd
		m, detailCmd = m.selectDetail()
		return m, tea.Batch(cmd, detailCmd)

	case async.Result[narrative.Detail]:
		m.detail = m.detail.Apply(msg)
		return m, nil

	case async.Result[narrative.OrgData], async.Result[narrative.LinkOutcome]:
		// Results for a closed menu are dropped: no view is observing them.
		if m.focus != paneOrgMenu {
			return m, nil
		}
		var cmd tea.Cmd
		m.menu, cmd, _ = m.menu.Update(m.ctx, m.backend, msg)
		return m, cmd

	case copiedToClipboardMsg:
		if msg.err != nil {
			m.log.Warn("clipboard write failed", zap.Error(msg.err))
			m.copyErr = msg.err.Error()
			return m, nil
		}
		m.showCopied = true
		m.copyErr = ""
		return m, hideCopiedCmd()

	case hideCopiedMsg:
		m.showCopied = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus == paneOrgMenu {
			var (
				cmd    tea.Cmd
				closed bool
			)
			m.menu, cmd, closed = m.menu.Update(m.ctx, m.backend, msg)
			if closed {
				m.focus = paneList
				m.menu = orgMenu{}
			}
			return m, cmd
		}
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "R":
				return m.startList()
			case "o":
				if sel, ok := m.list.SelectedItem().(item); ok {
					var cmd tea.Cmd
					m.menu, cmd = newOrgMenu(m.ctx, m.backend, sel.n, m.cfg.OrgURL)
					m.focus = paneOrgMenu
					return m, cmd
				}
			case "c":
				if sel, ok := m.list.SelectedItem().(item); ok {
					return m, copyToClipboardCmd(m.cfg.NarrativeURL(sel.n.WorkspaceID))
				}
			}
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.focus == paneOrgMenu {
		m.menu, cmd, _ = m.menu.Update(m.ctx, m.backend, msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	m, cmd = m.selectDetail()
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	mainView := async.Render(m.narratives.State(), async.Views[[]narrative.Narrative]{
		Pending: pendingView(m.spinner.View(), "Loading Narratives..."),
		Failed: func(msg string) string {
			return renderWarning(msg) + "\n" + helpStyle.Render("Press R to retry.")
		},
		Succeeded: func(ns []narrative.Narrative) string {
			if len(ns) == 0 {
				return mutedStyle.Render("You have no Narratives yet.")
			}
			right := m.renderDetailView()
			if m.focus == paneOrgMenu {
				right = menuPaneStyle.Render(m.menu.View(m.spinner.View()))
			} else {
				right = detailPaneStyle.Render(right)
			}
			return lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), right)
		},
	})

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, mainView, m.renderHelpView()))
}

func (m model) renderDetailView() string {
	sel, ok := m.list.SelectedItem().(item)
	if !ok {
		return "Select a Narrative to see details."
	}
	out := renderDetail(sel.n, m.detail.State(), m.spinner.View(), m.cfg.NarrativeURL(sel.n.WorkspaceID), m.showCopied)
	if m.copyErr != "" {
		out += "\n" + errorStyle.Render("Copy failed: "+m.copyErr)
	}
	return out
}

func (m model) renderHelpView() string {
	helpText := "↑/↓: navigate • /: filter • o: organizations • c: copy URL • R: reload • q: quit"
	return helpStyle.Render("\n" + helpText)
}
