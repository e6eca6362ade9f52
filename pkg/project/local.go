package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/stellarlinkco/toolsdk/pkg/message"
)

// Options configures a LocalEditor.
type Options struct {
	// ID names the project; defaults to the root's base name.
	ID string
	// Fs defaults to the OS filesystem. Symlinks are only followed on the
	// OS filesystem.
	Fs     afero.Fs
	Logger zerolog.Logger
}

// LocalEditor is an Editor over a directory tree.
type LocalEditor struct {
	id       string
	root     string
	fs       afero.Fs
	followFS bool
	logger   zerolog.Logger

	mu      sync.Mutex
	order   []string
	pending map[string]string
}

// NewLocalEditor opens the project rooted at root, which must be an existing
// directory.
func NewLocalEditor(root string, opts Options) (*LocalEditor, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	_, isOS := fsys.(*afero.OsFs)

	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("project root: %w", ErrEmptyPath)
	}
	abs := root
	if isOS {
		var err error
		if abs, err = filepath.Abs(root); err != nil {
			return nil, fmt.Errorf("project root: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	abs = filepath.Clean(abs)

	info, err := fsys.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", abs)
	}

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = filepath.Base(abs)
	}
	return &LocalEditor{
		id:       id,
		root:     abs,
		fs:       fsys,
		followFS: isOS,
		logger:   opts.Logger.With().Str("component", "project").Str("project", id).Logger(),
		pending:  make(map[string]string),
	}, nil
}

func (e *LocalEditor) ProjectID() string   { return e.id }
func (e *LocalEditor) ProjectRoot() string { return e.root }
func (e *LocalEditor) FS() afero.Fs        { return e.fs }

// IsPathWithinProject reports whether p resolves inside the root. It never
// reads file contents; on the OS filesystem it follows symlinks of existing
// path components.
func (e *LocalEditor) IsPathWithinProject(_ context.Context, p string) bool {
	_, err := e.resolve(p)
	return err == nil
}

// ResolveProjectFilePath returns the absolute path of p inside the project
// or ErrOutsideProject.
func (e *LocalEditor) ResolveProjectFilePath(_ context.Context, p string) (string, error) {
	return e.resolve(p)
}

func (e *LocalEditor) resolve(p string) (string, error) {
	abs, err := lexical(e.root, p)
	if err != nil {
		return "", err
	}
	if !within(abs, e.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideProject, p)
	}
	if !e.followFS {
		return abs, nil
	}
	target, err := evalExisting(abs)
	if err != nil {
		return "", err
	}
	if !within(target, e.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideProject, p)
	}
	return abs, nil
}

// Rel returns p relative to the project root with forward slashes, or p
// unchanged when it cannot be expressed relatively.
func (e *LocalEditor) Rel(p string) string {
	rel, err := filepath.Rel(e.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}

// TrackChange records pending content for p without writing it.
func (e *LocalEditor) TrackChange(p, content string) error {
	abs, err := e.resolve(p)
	if err != nil {
		return err
	}
	rel := e.Rel(abs)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[rel]; !ok {
		e.order = append(e.order, rel)
	}
	e.pending[rel] = content
	return nil
}

// ChangedFiles lists pending paths in the order they were first tracked.
func (e *LocalEditor) ChangedFiles() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func (e *LocalEditor) ChangeContents() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.pending))
	for k, v := range e.pending {
		out[k] = v
	}
	return out
}

// LogAndCommitChanges writes each path's content, reports it to logger and
// clears it from the pending set. Content missing from contents falls back
// to the tracked change. The first failure stops the commit.
func (e *LocalEditor) LogAndCommitChanges(ctx context.Context, logger ChangeLogger, paths []string, contents map[string]string) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		abs, err := e.resolve(p)
		if err != nil {
			return err
		}
		rel := e.Rel(abs)

		content, ok := contents[p]
		if !ok {
			e.mu.Lock()
			content, ok = e.pending[rel]
			e.mu.Unlock()
		}
		if !ok {
			return fmt.Errorf("commit %s: no content", rel)
		}

		if err := e.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("commit %s: %w", rel, err)
		}
		if err := afero.WriteFile(e.fs, abs, []byte(content), 0o644); err != nil {
			return fmt.Errorf("commit %s: %w", rel, err)
		}
		if logger != nil {
			if err := logger.LogChange(ctx, rel, content); err != nil {
				return fmt.Errorf("log change %s: %w", rel, err)
			}
		}
		e.forget(rel)
		e.logger.Debug().Str("path", rel).Int("bytes", len(content)).Msg("committed change")
	}
	return nil
}

func (e *LocalEditor) forget(rel string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[rel]; !ok {
		return
	}
	delete(e.pending, rel)
	for i, p := range e.order {
		if p == rel {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// PrepareFilesForConversation stats each named file. Files that cannot be
// prepared are returned with Metadata.Error set rather than failing the
// batch.
func (e *LocalEditor) PrepareFilesForConversation(ctx context.Context, names []string) ([]PreparedFile, error) {
	out := make([]PreparedFile, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, mt := message.FileKindFor(name)
		pf := PreparedFile{Name: name, Metadata: message.FileMetadata{Kind: kind, MimeType: mt}}

		abs, err := e.resolve(name)
		if err != nil {
			pf.Metadata.Error = err.Error()
			out = append(out, pf)
			continue
		}
		info, err := e.fs.Stat(abs)
		switch {
		case err != nil && os.IsNotExist(err):
			pf.Metadata.Error = "file not found"
		case err != nil:
			pf.Metadata.Error = err.Error()
		case info.IsDir():
			pf.Metadata.Error = "is a directory"
		default:
			pf.Metadata.Size = info.Size()
			pf.Metadata.LastModified = info.ModTime()
		}
		out = append(out, pf)
	}
	return out, nil
}
