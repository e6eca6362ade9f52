package interaction

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/toolsdk/pkg/message"
)

// Options configures a Conversation.
type Options struct {
	// ID defaults to a random UUID.
	ID     string
	Logger zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Conversation implements Interaction on top of a Store. Usage counters live
// in memory and are written back by Flush.
type Conversation struct {
	id     string
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	stats  message.ToolUsageStats
	tokens message.TokenUsage
}

var _ Interaction = (*Conversation)(nil)

// NewConversation opens a conversation and restores any usage previously
// saved under its id.
func NewConversation(ctx context.Context, store Store, opts Options) (*Conversation, error) {
	if store == nil {
		return nil, errors.New("interaction: nil store")
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	stats, tokens, err := store.LoadUsage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	return &Conversation{
		id:     id,
		store:  store,
		logger: opts.Logger.With().Str("component", "interaction").Str("conversation", id).Logger(),
		now:    now,
		stats:  stats,
		tokens: tokens,
	}, nil
}

func (c *Conversation) ID() string { return c.id }

func (c *Conversation) FileMetadata(ctx context.Context, resourceID, revisionID string) (*message.FileMetadata, error) {
	rev, err := c.store.GetRevision(ctx, c.id, resourceID, revisionID)
	if err != nil {
		return nil, err
	}
	md := rev.Metadata
	return &md, nil
}

func (c *Conversation) ReadRevision(ctx context.Context, resourceID, revisionID string) ([]byte, error) {
	rev, err := c.store.GetRevision(ctx, c.id, resourceID, revisionID)
	if err != nil {
		return nil, err
	}
	return rev.Content, nil
}

// WriteRevision stores content as a new revision. Missing size and kind in md
// are filled in from the content and resource id.
func (c *Conversation) WriteRevision(ctx context.Context, resourceID, revisionID string, content []byte, md message.FileMetadata) error {
	if resourceID == "" || revisionID == "" {
		return errors.New("interaction: resource and revision ids are required")
	}
	if md.Path == "" {
		md.Path = resourceID
	}
	if md.Kind == "" {
		md.Kind, md.MimeType = message.FileKindFor(md.Path)
	}
	if md.Size == 0 {
		md.Size = int64(len(content))
	}
	if md.LastModified.IsZero() {
		md.LastModified = c.now()
	}
	return c.store.PutRevision(ctx, c.id, Revision{
		ResourceID: resourceID,
		RevisionID: revisionID,
		Content:    content,
		Metadata:   md,
	})
}

func (c *Conversation) ContentBlocks(ctx context.Context, resourceID, revisionID string, turnIndex int) ([]message.Part, error) {
	rev, err := c.store.GetRevision(ctx, c.id, resourceID, revisionID)
	if errors.Is(err, ErrRevisionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	md := rev.Metadata
	if md.Error != "" {
		return nil, nil
	}

	header := fmt.Sprintf("File: %s (revision %s, turn %d)", md.Path, revisionID, turnIndex)
	switch md.Kind {
	case message.FileKindImage:
		if len(rev.Content) == 0 || md.MimeType == "" {
			return nil, nil
		}
		return []message.Part{
			message.TextPart{Text: header},
			message.ImagePart{MediaType: md.MimeType, Data: base64.StdEncoding.EncodeToString(rev.Content)},
		}, nil
	case message.FileKindText:
		if !utf8.Valid(rev.Content) {
			return nil, nil
		}
		return []message.Part{message.TextPart{Text: header + "\n" + string(rev.Content)}}, nil
	default:
		return nil, nil
	}
}

func (c *Conversation) AddResourceToMessage(ctx context.Context, messageID string, ref ResourceRef) error {
	return c.AddResourcesToMessage(ctx, messageID, []ResourceRef{ref})
}

func (c *Conversation) AddResourcesToMessage(ctx context.Context, messageID string, refs []ResourceRef) error {
	if messageID == "" {
		return errors.New("interaction: message id is required")
	}
	return c.store.AttachResources(ctx, c.id, messageID, refs)
}

func (c *Conversation) MessageResources(ctx context.Context, messageID string) ([]ResourceRef, error) {
	return c.store.MessageResources(ctx, c.id, messageID)
}

// ToolUsage returns a snapshot of the tool statistics.
func (c *Conversation) ToolUsage() message.ToolUsageStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Clone()
}

// RecordToolUse applies one execution outcome atomically.
func (c *Conversation) RecordToolUse(name string, success bool) {
	c.mu.Lock()
	c.stats.Record(name, success, c.now())
	c.mu.Unlock()
	c.logger.Debug().Str("tool", name).Bool("success", success).Msg("tool use recorded")
}

func (c *Conversation) TokenUsage() message.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *Conversation) AddTokenUsage(u message.TokenUsage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = c.tokens.Add(u)
}

func (c *Conversation) LogChange(ctx context.Context, path, content string) error {
	return c.store.AppendChange(ctx, c.id, Change{Path: path, Content: content, At: c.now()})
}

// Changes lists committed changes in order.
func (c *Conversation) Changes(ctx context.Context) ([]Change, error) {
	return c.store.Changes(ctx, c.id)
}

// Flush persists the usage counters.
func (c *Conversation) Flush(ctx context.Context) error {
	c.mu.Lock()
	stats := c.stats.Clone()
	tokens := c.tokens
	c.mu.Unlock()
	if err := c.store.SaveUsage(ctx, c.id, stats, tokens); err != nil {
		return fmt.Errorf("save usage: %w", err)
	}
	return nil
}
