package message

import (
	"maps"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// FileKind classifies a file for conversation purposes.
type FileKind string

const (
	FileKindText  FileKind = "text"
	FileKindImage FileKind = "image"
)

// FileMetadata describes one revision of a file attached to a conversation.
type FileMetadata struct {
	Kind         FileKind  `json:"type"`
	MimeType     string    `json:"mimeType,omitempty"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	MessageID    string    `json:"messageId,omitempty"`
	ToolUseID    string    `json:"toolUseId,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// FileKindFor infers the kind and mime type of path from its extension.
// Unknown extensions are treated as plain text.
func FileKindFor(path string) (FileKind, string) {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		return FileKindText, "text/plain"
	}
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		mt = base
	}
	if strings.HasPrefix(mt, "image/") {
		return FileKindImage, mt
	}
	return FileKindText, mt
}

// TokenUsage counts tokens spent by a model exchange.
type TokenUsage struct {
	InputTokens              int64 `json:"inputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens,omitempty"`
}

func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Add returns the field-wise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:              u.InputTokens + other.InputTokens,
		OutputTokens:             u.OutputTokens + other.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens + other.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens + other.CacheReadInputTokens,
	}
}

// ToolOutcome counts the results of one tool's executions.
type ToolOutcome struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// ToolUsageStats aggregates tool executions over an interaction. It is a
// plain value; callers serialise updates (see interaction.Conversation).
type ToolUsageStats struct {
	Outcomes          map[string]ToolOutcome `json:"outcomes"`
	LastToolName      string                 `json:"lastToolName,omitempty"`
	LastToolSucceeded bool                   `json:"lastToolSucceeded"`
	LastUsedAt        time.Time              `json:"lastUsedAt,omitempty"`
}

// Record applies one execution outcome. Counts and the last-use fields move
// together so a snapshot never shows one without the other.
func (s *ToolUsageStats) Record(name string, success bool, at time.Time) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[string]ToolOutcome)
	}
	o := s.Outcomes[name]
	if success {
		o.Success++
	} else {
		o.Failure++
	}
	s.Outcomes[name] = o
	s.LastToolName = name
	s.LastToolSucceeded = success
	s.LastUsedAt = at
}

// Invocations returns how many times name ran.
func (s ToolUsageStats) Invocations(name string) int {
	o := s.Outcomes[name]
	return o.Success + o.Failure
}

// Total returns the number of recorded executions.
func (s ToolUsageStats) Total() int {
	n := 0
	for _, o := range s.Outcomes {
		n += o.Success + o.Failure
	}
	return n
}

// Clone returns a deep copy safe to hand out while the original keeps
// changing.
func (s ToolUsageStats) Clone() ToolUsageStats {
	out := ToolUsageStats{
		LastToolName:      s.LastToolName,
		LastToolSucceeded: s.LastToolSucceeded,
		LastUsedAt:        s.LastUsedAt,
	}
	if s.Outcomes != nil {
		out.Outcomes = maps.Clone(s.Outcomes)
	}
	return out
}
