package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/message"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "toolsdk.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestRevisions(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	modified := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	rev := interaction.Revision{
		ResourceID: "src/a.go",
		RevisionID: "r1",
		Content:    []byte("package a"),
		Metadata:   message.FileMetadata{Kind: message.FileKindText, Path: "src/a.go", Size: 9, LastModified: modified},
	}
	require.NoError(t, s.PutRevision(ctx, "c1", rev))

	got, err := s.GetRevision(ctx, "c1", "src/a.go", "r1")
	require.NoError(t, err)
	assert.Equal(t, "package a", string(got.Content))
	assert.Equal(t, rev.Metadata.Path, got.Metadata.Path)
	assert.True(t, modified.Equal(got.Metadata.LastModified))

	rev.Content = []byte("package b")
	require.NoError(t, s.PutRevision(ctx, "c1", rev))
	got, err = s.GetRevision(ctx, "c1", "src/a.go", "r1")
	require.NoError(t, err)
	assert.Equal(t, "package b", string(got.Content))

	_, err = s.GetRevision(ctx, "c2", "src/a.go", "r1")
	assert.ErrorIs(t, err, interaction.ErrRevisionNotFound)
}

func TestMessageResources(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	a := interaction.ResourceRef{ResourceID: "a", RevisionID: "1"}
	b := interaction.ResourceRef{ResourceID: "b", RevisionID: "1"}
	require.NoError(t, s.AttachResources(ctx, "c1", "m1", []interaction.ResourceRef{a, b, a}))
	require.NoError(t, s.AttachResources(ctx, "c1", "m1", []interaction.ResourceRef{b}))

	refs, err := s.MessageResources(ctx, "c1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []interaction.ResourceRef{a, b}, refs)

	refs, err = s.MessageResources(ctx, "c1", "other")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestChangesKeepOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	at := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendChange(ctx, "c1", interaction.Change{Path: "a", Content: "1", At: at}))
	require.NoError(t, s.AppendChange(ctx, "c1", interaction.Change{Path: "b", Content: "2", At: at.Add(time.Second)}))

	changes, err := s.Changes(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "a", changes[0].Path)
	assert.Equal(t, "b", changes[1].Path)
	assert.True(t, at.Add(time.Second).Equal(changes[1].At))
}

func TestUsagePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)

	var stats message.ToolUsageStats
	stats.Record("search_project", true, time.Now())
	require.NoError(t, s.SaveUsage(ctx, "c1", stats, message.TokenUsage{InputTokens: 4}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	gotStats, gotTokens, err := reopened.LoadUsage(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, gotStats.Invocations("search_project"))
	assert.EqualValues(t, 4, gotTokens.InputTokens)

	gotStats, _, err = reopened.LoadUsage(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, gotStats.Total())
}

func TestConversationOnSQLite(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	conv, err := interaction.NewConversation(ctx, s, interaction.Options{ID: "c9"})
	require.NoError(t, err)
	require.NoError(t, conv.WriteRevision(ctx, "readme.md", "r1", []byte("hi"), message.FileMetadata{}))

	parts, err := conv.ContentBlocks(ctx, "readme.md", "r1", 1)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Contains(t, message.PlainText(parts), "hi")
}
