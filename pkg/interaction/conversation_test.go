package interaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/toolsdk/pkg/message"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newConversation(t *testing.T, store Store) *Conversation {
	t.Helper()
	c, err := NewConversation(context.Background(), store, Options{ID: "conv-1", Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return c
}

func TestNewConversationGeneratesID(t *testing.T) {
	c, err := NewConversation(context.Background(), NewMemoryStore(), Options{})
	require.NoError(t, err)
	assert.Len(t, c.ID(), 36)

	_, err = NewConversation(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestRevisionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newConversation(t, NewMemoryStore())

	require.NoError(t, c.WriteRevision(ctx, "notes.md", "r1", []byte("# notes"), message.FileMetadata{}))

	md, err := c.FileMetadata(ctx, "notes.md", "r1")
	require.NoError(t, err)
	assert.Equal(t, "notes.md", md.Path)
	assert.Equal(t, message.FileKindText, md.Kind)
	assert.EqualValues(t, 7, md.Size)
	assert.Equal(t, fixedNow, md.LastModified)

	data, err := c.ReadRevision(ctx, "notes.md", "r1")
	require.NoError(t, err)
	assert.Equal(t, "# notes", string(data))

	_, err = c.ReadRevision(ctx, "notes.md", "r2")
	assert.ErrorIs(t, err, ErrRevisionNotFound)

	assert.Error(t, c.WriteRevision(ctx, "", "r1", nil, message.FileMetadata{}))
}

func TestContentBlocks(t *testing.T) {
	ctx := context.Background()
	c := newConversation(t, NewMemoryStore())

	require.NoError(t, c.WriteRevision(ctx, "a.txt", "r1", []byte("hello"), message.FileMetadata{}))
	require.NoError(t, c.WriteRevision(ctx, "logo.png", "r1", []byte{1, 2, 3}, message.FileMetadata{}))
	require.NoError(t, c.WriteRevision(ctx, "bin.txt", "r1", []byte{0xff, 0xfe}, message.FileMetadata{}))
	require.NoError(t, c.WriteRevision(ctx, "broken.txt", "r1", []byte("x"), message.FileMetadata{Error: "unreadable"}))

	parts, err := c.ContentBlocks(ctx, "a.txt", "r1", 2)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "File: a.txt (revision r1, turn 2)\nhello", parts[0].(message.TextPart).Text)

	parts, err = c.ContentBlocks(ctx, "logo.png", "r1", 0)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	img := parts[1].(message.ImagePart)
	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, "AQID", img.Data)

	for _, id := range []string{"bin.txt", "broken.txt", "missing.txt"} {
		parts, err = c.ContentBlocks(ctx, id, "r1", 0)
		require.NoError(t, err, id)
		assert.Nil(t, parts, id)
	}
}

func TestMessageResourcesDeduplicate(t *testing.T) {
	ctx := context.Background()
	c := newConversation(t, NewMemoryStore())

	ref := ResourceRef{ResourceID: "a.txt", RevisionID: "r1"}
	require.NoError(t, c.AddResourceToMessage(ctx, "msg-1", ref))
	require.NoError(t, c.AddResourcesToMessage(ctx, "msg-1", []ResourceRef{ref, {ResourceID: "b.txt", RevisionID: "r1"}}))
	assert.Error(t, c.AddResourceToMessage(ctx, "", ref))

	refs, err := c.MessageResources(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, []ResourceRef{ref, {ResourceID: "b.txt", RevisionID: "r1"}}, refs)
}

func TestRecordToolUseIsAtomic(t *testing.T) {
	c := newConversation(t, NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.RecordToolUse("search_project", i%2 == 0)
		}(i)
	}
	wg.Wait()

	stats := c.ToolUsage()
	assert.Equal(t, message.ToolOutcome{Success: 25, Failure: 25}, stats.Outcomes["search_project"])
	assert.Equal(t, "search_project", stats.LastToolName)
}

func TestFlushRestoresUsage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := newConversation(t, store)
	c.RecordToolUse("open_in_browser", false)
	c.AddTokenUsage(message.TokenUsage{InputTokens: 10, OutputTokens: 3})
	require.NoError(t, c.Flush(ctx))

	restored := newConversation(t, store)
	assert.Equal(t, 1, restored.ToolUsage().Invocations("open_in_browser"))
	assert.EqualValues(t, 13, restored.TokenUsage().Total())
}

func TestLogChange(t *testing.T) {
	ctx := context.Background()
	c := newConversation(t, NewMemoryStore())
	require.NoError(t, c.LogChange(ctx, "a.go", "package a"))

	changes, err := c.Changes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Path: "a.go", Content: "package a", At: fixedNow}}, changes)
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Changes(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMemoryStoreRevisionsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	content := []byte("v1")
	md := message.FileMetadata{Kind: message.FileKindText, Path: "a.txt", Size: 2, LastModified: fixedNow}
	require.NoError(t, s.PutRevision(ctx, "conv-1", Revision{ResourceID: "a.txt", RevisionID: "r1", Content: content, Metadata: md}))
	content[0] = 'X'

	got, err := s.GetRevision(ctx, "conv-1", "a.txt", "r1")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got.Content))
	assert.Equal(t, "a.txt", got.Metadata.Path)
	assert.True(t, got.Metadata.LastModified.Equal(fixedNow))

	got.Content[0] = 'Y'
	again, err := s.GetRevision(ctx, "conv-1", "a.txt", "r1")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(again.Content))
}
