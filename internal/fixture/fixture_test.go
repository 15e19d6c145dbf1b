package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/narrative"
)

const sample = `
user: alice
narratives:
  - id: 10
    object: 1
    title: Mine
    owner: alice
    saved: 2024-01-01T00:00:00Z
    version: 7
    created: 2023-06-01T00:00:00Z
    cells: {app: 3, markdown: 2, code: 1}
    permissions:
      alice: a
      carol: w
      dave: n
    apps:
      - id: kb_uploadmethods/import_reads
      - id: fba_tools/run_fba
        tag: beta
    objects:
      - id: 2
        name: reads
        type: KBaseFile.PairedEndLibrary-2.1
        saved_by: alice
  - id: 11
    object: 1
    title: Shared with me
    owner: bob
    saved: 2024-02-01T00:00:00Z
    permissions:
      alice: r
  - id: 12
    object: 1
    title: Private to bob
    owner: bob
    saved: 2024-03-01T00:00:00Z
groups:
  - id: g1
    name: Lab One
    members: [alice]
    narratives: [10]
  - id: g2
    name: Open Lab
    members: [alice, bob]
  - id: g3
    name: Gated Lab
    members: [alice]
    approval: true
  - id: g4
    name: Bob's Lab
    members: [bob]
icons:
  kb_uploadmethods/import_reads:
    image: https://example.org/reads.png
  fba_tools/run_fba:
    glyph: flask
    color: "#2e7d32"
`

func mustParse(t *testing.T, doc string) *Backend {
	t.Helper()
	b, err := Parse([]byte(doc))
	require.NoError(t, err)
	return b
}

func TestParseValidates(t *testing.T) {
	_, err := Parse([]byte("narratives: []"))
	assert.ErrorContains(t, err, "user is required")

	_, err = Parse([]byte("user: a\nnarratives: [{id: 1}, {id: 1}]"))
	assert.ErrorContains(t, err, "duplicate narrative 1")

	_, err = Parse([]byte("user: [unterminated"))
	assert.Error(t, err)
}

func TestListNarrativesHonorsPermissions(t *testing.T) {
	b := mustParse(t, sample)
	got, err := b.ListNarratives(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 11, got[0].WorkspaceID, "most recent first")
	assert.Equal(t, narrative.PermRead, got[0].Permission)
	assert.Equal(t, 10, got[1].WorkspaceID)
	assert.Equal(t, narrative.PermAdmin, got[1].Permission)
}

func TestOrgOperations(t *testing.T) {
	b := mustParse(t, sample)
	ctx := context.Background()

	data, err := narrative.LoadOrgData(ctx, b, b, 10)
	require.NoError(t, err)
	assert.Equal(t, narrative.PermAdmin, data.Permission)
	assert.Equal(t, []narrative.GroupInfo{{ID: "g1", Name: "Lab One"}}, data.Linked)
	assert.Equal(t, []narrative.GroupIdentity{{ID: "g2"}, {ID: "g3"}}, data.Candidates)

	out, err := b.LinkToGroup(ctx, 10, "g2")
	require.NoError(t, err)
	assert.Equal(t, narrative.LinkCompleted, out)

	out, err = b.LinkToGroup(ctx, 10, "g3")
	require.NoError(t, err)
	assert.Equal(t, narrative.LinkRequested, out)
	b.mu.Lock()
	assert.Equal(t, []int{10}, b.requests["g3"])
	b.mu.Unlock()

	data, err = narrative.LoadOrgData(ctx, b, b, 10)
	require.NoError(t, err)
	assert.Equal(t, []narrative.GroupIdentity{{ID: "g3"}}, data.Candidates, "requested link stays a candidate")

	_, err = b.LinkToGroup(ctx, 10, "g2")
	assert.Equal(t, "This Narrative is already linked to the Organization", async.Describe(err))

	_, err = b.LinkToGroup(ctx, 10, "g4")
	assert.Equal(t, "You are not a member of this Organization", async.Describe(err))

	_, err = b.LinkToGroup(ctx, 10, "nope")
	assert.Equal(t, "Organization nope not found", async.Describe(err))

	_, err = b.LinkToGroup(ctx, 99, "g2")
	assert.Equal(t, "Narrative workspace 99 not found", async.Describe(err))
}

func TestInjectedFailure(t *testing.T) {
	b := mustParse(t, sample+"fail:\n  linked_groups: network down\n")
	_, err := narrative.LoadOrgData(context.Background(), b, b, 10)
	require.Error(t, err)
	assert.Equal(t, "network down", async.Describe(err))
}

func TestLatencyHonorsContext(t *testing.T) {
	b := mustParse(t, sample+"latency: 1h\n")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.UserGroups(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetailAndIcons(t *testing.T) {
	b := mustParse(t, sample)
	ctx := context.Background()

	sum, err := b.Summary(ctx, narrative.Narrative{WorkspaceID: 10})
	require.NoError(t, err)
	assert.Equal(t, []narrative.AppRef{
		{ID: "kb_uploadmethods/import_reads", Tag: "release"},
		{ID: "fba_tools/run_fba", Tag: "beta"},
	}, sum.Apps)
	assert.Equal(t, 7, sum.Version)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), sum.Created)
	assert.Equal(t, narrative.Cells{App: 3, Markdown: 2, Code: 1}, sum.Cells)

	shared, err := b.SharedWith(ctx, narrative.Narrative{WorkspaceID: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, shared)

	// Defaults: version 1, created at the last save, one cell per app.
	sum, err = b.Summary(ctx, narrative.Narrative{WorkspaceID: 11})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Version)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), sum.Created)
	assert.Zero(t, sum.Cells.Total())

	shared, err = b.SharedWith(ctx, narrative.Narrative{WorkspaceID: 11})
	require.NoError(t, err)
	assert.Empty(t, shared, "the caller is not listed")

	objs, err := b.DataObjects(ctx, 10)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "reads", objs[0].Name)

	info, err := b.IconMetadata(ctx, "kb_uploadmethods/import_reads", "release")
	require.NoError(t, err)
	assert.Equal(t, narrative.IconInfo{IsImage: true, URL: "https://example.org/reads.png"}, info)

	info, err = b.IconMetadata(ctx, "fba_tools/run_fba", "beta")
	require.NoError(t, err)
	assert.Equal(t, narrative.IconInfo{Icon: "flask", Color: "#2e7d32"}, info)

	_, err = b.IconMetadata(ctx, "missing/app", "release")
	assert.Error(t, err)
}

func TestLoadDemoFixture(t *testing.T) {
	b, err := Load("../../fixtures/demo.yaml")
	require.NoError(t, err)

	got, err := b.ListNarratives(context.Background())
	require.NoError(t, err)
	ids := make([]int, len(got))
	for i, n := range got {
		ids[i] = n.WorkspaceID
	}
	assert.Equal(t, []int{61002, 53745, 60001}, ids)

	_, err = Load("does-not-exist.yaml")
	assert.ErrorContains(t, err, "read fixture")
}
