package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katistix/narratives/internal/narrative"
)

// runCmd executes the root command against a fixture written from doc.
func runCmd(t *testing.T, doc string, args ...string) (string, error) {
	t.Helper()
	clearAuthEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--fixture", path, "--log-level", "error"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrgsCommand(t *testing.T) {
	out, err := runCmd(t, demo, "orgs", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Lab One")
	assert.Contains(t, out, "https://narrative.kbase.us/orgs/g1")
	assert.Contains(t, out, "g2")
	assert.Contains(t, out, "g3")
}

func TestOrgsCommandNonAdmin(t *testing.T) {
	out, err := runCmd(t, demo, "orgs", "11")
	require.NoError(t, err)
	assert.Contains(t, out, accessDeniedText)
	assert.NotContains(t, out, "g2")
}

func TestOrgsCommandFailure(t *testing.T) {
	out, err := runCmd(t, demo+"fail:\n  linked_groups: Groups service unavailable\n", "orgs", "10")
	assert.ErrorIs(t, err, errOperationFailed)
	assert.Contains(t, out, "Groups service unavailable")
}

func TestLinkCommand(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		group   string
		want    string
		wantErr error
	}{
		{name: "completed", doc: demo, group: "g2", want: narrative.LinkCompleted.Message()},
		{name: "requested", doc: demo, group: "g3", want: narrative.LinkRequested.Message()},
		{name: "already linked", doc: demo, group: "g1", want: "already linked", wantErr: errOperationFailed},
		{name: "failure", doc: demo + "fail:\n  link: network down\n", group: "g2", want: "network down", wantErr: errOperationFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runCmd(t, tc.doc, "link", "10", tc.group)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestIconCommandFallsBack(t *testing.T) {
	out, err := runCmd(t, demo, "icon", "unknown/app")
	require.NoError(t, err)
	assert.Contains(t, out, "glyph "+narrative.DefaultIcon.Icon+" "+narrative.DefaultIcon.Color)
}

func TestCommandsRejectBadWorkspaceID(t *testing.T) {
	for _, args := range [][]string{{"orgs", "abc"}, {"orgs", "0"}, {"link", "x", "g2"}} {
		_, err := runCmd(t, demo, args...)
		assert.ErrorContains(t, err, "invalid workspace id")
	}
}
