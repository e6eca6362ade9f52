package interaction

import (
	"context"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/stellarlinkco/toolsdk/pkg/message"
)

type revKey struct{ conv, resource, revision string }

type usage struct {
	stats  message.ToolUsageStats
	tokens message.TokenUsage
}

// MemoryStore keeps conversation state in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	closed    bool
	revisions map[revKey]Revision
	resources map[string]map[string][]ResourceRef
	changes   map[string][]Change
	usage     map[string]usage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revisions: make(map[revKey]Revision),
		resources: make(map[string]map[string][]ResourceRef),
		changes:   make(map[string][]Change),
		usage:     make(map[string]usage),
	}
}

func (s *MemoryStore) PutRevision(_ context.Context, conv string, rev Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	stored, err := snapshot(rev)
	if err != nil {
		return err
	}
	s.revisions[revKey{conv, rev.ResourceID, rev.RevisionID}] = stored
	return nil
}

func (s *MemoryStore) GetRevision(_ context.Context, conv, resourceID, revisionID string) (*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	rev, ok := s.revisions[revKey{conv, resourceID, revisionID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrRevisionNotFound, resourceID, revisionID)
	}
	out, err := snapshot(rev)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) AttachResources(_ context.Context, conv, messageID string, refs []ResourceRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	byMsg, ok := s.resources[conv]
	if !ok {
		byMsg = make(map[string][]ResourceRef)
		s.resources[conv] = byMsg
	}
	for _, ref := range refs {
		if containsRef(byMsg[messageID], ref) {
			continue
		}
		byMsg[messageID] = append(byMsg[messageID], ref)
	}
	return nil
}

func containsRef(refs []ResourceRef, ref ResourceRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

func (s *MemoryStore) MessageResources(_ context.Context, conv, messageID string) ([]ResourceRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return append([]ResourceRef(nil), s.resources[conv][messageID]...), nil
}

func (s *MemoryStore) AppendChange(_ context.Context, conv string, c Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.changes[conv] = append(s.changes[conv], c)
	return nil
}

func (s *MemoryStore) Changes(_ context.Context, conv string) ([]Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return append([]Change(nil), s.changes[conv]...), nil
}

func (s *MemoryStore) SaveUsage(_ context.Context, conv string, stats message.ToolUsageStats, tokens message.TokenUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.usage[conv] = usage{stats: stats.Clone(), tokens: tokens}
	return nil
}

func (s *MemoryStore) LoadUsage(_ context.Context, conv string) (message.ToolUsageStats, message.TokenUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return message.ToolUsageStats{}, message.TokenUsage{}, ErrStoreClosed
	}
	u := s.usage[conv]
	return u.stats.Clone(), u.tokens, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// snapshot deep copies v so the store never shares slices with callers.
func snapshot[T any](v T) (T, error) {
	var out T
	if err := copier.CopyWithOption(&out, &v, copier.Option{DeepCopy: true}); err != nil {
		return out, fmt.Errorf("snapshot: %w", err)
	}
	return out, nil
}
