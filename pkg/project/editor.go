// Package project defines the project collaborator tools run against and a
// local filesystem implementation of it.
package project

import (
	"context"
	"errors"

	"github.com/spf13/afero"

	"github.com/stellarlinkco/toolsdk/pkg/message"
)

var (
	// ErrOutsideProject is returned when a path escapes the project root.
	ErrOutsideProject = errors.New("path is outside the project")
	// ErrEmptyPath is returned for blank path arguments.
	ErrEmptyPath = errors.New("empty path")
)

// ChangeLogger records committed changes against the owning conversation.
type ChangeLogger interface {
	LogChange(ctx context.Context, path, content string) error
}

// PreparedFile is a file ready to be attached to a conversation. Metadata
// carries no path; Name is the project-relative name the caller asked for.
type PreparedFile struct {
	Name     string
	Metadata message.FileMetadata
}

// Editor is the project a tool operates on. Implementations must make
// IsPathWithinProject and ResolveProjectFilePath agree, and must never touch
// the filesystem for a path that fails containment.
type Editor interface {
	ProjectID() string
	ProjectRoot() string
	// FS is the filesystem holding the project; paths are absolute.
	FS() afero.Fs

	ChangedFiles() []string
	ChangeContents() map[string]string
	TrackChange(path, content string) error
	LogAndCommitChanges(ctx context.Context, logger ChangeLogger, paths []string, contents map[string]string) error

	PrepareFilesForConversation(ctx context.Context, names []string) ([]PreparedFile, error)
	ResolveProjectFilePath(ctx context.Context, path string) (string, error)
	IsPathWithinProject(ctx context.Context, path string) bool
}
