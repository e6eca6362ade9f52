// Package interaction defines the conversation collaborator handed to tools
// and a Store-backed implementation of it.
package interaction

import (
	"context"
	"errors"
	"time"

	"github.com/stellarlinkco/toolsdk/pkg/message"
)

var (
	// ErrRevisionNotFound is returned when a resource revision is unknown.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrStoreClosed is returned by stores used after Close.
	ErrStoreClosed = errors.New("store closed")
)

// ResourceRef points at one revision of a resource.
type ResourceRef struct {
	ResourceID string `json:"resourceId"`
	RevisionID string `json:"revisionId"`
}

// Revision is a stored resource revision.
type Revision struct {
	ResourceID string
	RevisionID string
	Content    []byte
	Metadata   message.FileMetadata
}

// Change is one committed project change.
type Change struct {
	Path    string
	Content string
	At      time.Time
}

// Interaction is the conversation a tool executes within.
type Interaction interface {
	ID() string

	FileMetadata(ctx context.Context, resourceID, revisionID string) (*message.FileMetadata, error)
	ReadRevision(ctx context.Context, resourceID, revisionID string) ([]byte, error)
	WriteRevision(ctx context.Context, resourceID, revisionID string, content []byte, md message.FileMetadata) error
	// ContentBlocks renders a revision as message content for the given
	// turn. It returns nil, nil when the resource cannot be turned into
	// content.
	ContentBlocks(ctx context.Context, resourceID, revisionID string, turnIndex int) ([]message.Part, error)

	AddResourceToMessage(ctx context.Context, messageID string, ref ResourceRef) error
	AddResourcesToMessage(ctx context.Context, messageID string, refs []ResourceRef) error
	MessageResources(ctx context.Context, messageID string) ([]ResourceRef, error)

	ToolUsage() message.ToolUsageStats
	RecordToolUse(name string, success bool)
	TokenUsage() message.TokenUsage
	AddTokenUsage(u message.TokenUsage)

	LogChange(ctx context.Context, path, content string) error
}

// Store persists conversation state.
type Store interface {
	PutRevision(ctx context.Context, conversationID string, rev Revision) error
	GetRevision(ctx context.Context, conversationID, resourceID, revisionID string) (*Revision, error)
	AttachResources(ctx context.Context, conversationID, messageID string, refs []ResourceRef) error
	MessageResources(ctx context.Context, conversationID, messageID string) ([]ResourceRef, error)
	AppendChange(ctx context.Context, conversationID string, c Change) error
	Changes(ctx context.Context, conversationID string) ([]Change, error)
	SaveUsage(ctx context.Context, conversationID string, stats message.ToolUsageStats, tokens message.TokenUsage) error
	LoadUsage(ctx context.Context, conversationID string) (message.ToolUsageStats, message.TokenUsage, error)
	Close() error
}
