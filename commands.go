package main

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

// --- BUBBLE TEA MESSAGES ---
// Operation outcomes arrive as async.Result values; these cover the rest.

type copiedToClipboardMsg struct {
	err error
}

type hideCopiedMsg struct{}

// --- SERVICE & CLIPBOARD COMMANDS ---

func copyToClipboardCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedToClipboardMsg{err: clipboard.WriteAll(text)}
	}
}

func hideCopiedCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return hideCopiedMsg{}
	})
}

func loadNarrativesCmd(ctx context.Context, b backend, token async.Token) tea.Cmd {
	return async.Run(ctx, token, b.catalog.ListNarratives)
}

func loadDetailCmd(ctx context.Context, b backend, log *zap.Logger, token async.Token, n narrative.Narrative) tea.Cmd {
	return async.Run(ctx, token, func(ctx context.Context) (narrative.Detail, error) {
		return narrative.LoadDetail(ctx, b.catalog, b.icons, log, n)
	})
}

func loadOrgsCmd(ctx context.Context, b backend, token async.Token, wsID int) tea.Cmd {
	return async.Run(ctx, token, b.loadOrgs(wsID))
}

func linkCmd(ctx context.Context, b backend, token async.Token, wsID int, groupID string) tea.Cmd {
	return async.Run(ctx, token, b.link(wsID, groupID))
}
