package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/stellarlinkco/toolsdk/pkg/project"
)

// LocalDataSourceName is the name LocalDataSource registers under.
const LocalDataSourceName = "local"

var ErrMissingRoot = errors.New("datasource config has no root")

// LocalDataSource opens a directory on a filesystem as a project. Config keys:
// "root" (required) and "id".
type LocalDataSource struct {
	// Fs defaults to the OS filesystem.
	Fs     afero.Fs
	Logger zerolog.Logger
}

func (d LocalDataSource) Name() string { return LocalDataSourceName }

func (d LocalDataSource) Open(_ context.Context, config map[string]any) (project.Editor, error) {
	root, _ := config["root"].(string)
	if strings.TrimSpace(root) == "" {
		return nil, ErrMissingRoot
	}
	id, _ := config["id"].(string)
	editor, err := project.NewLocalEditor(root, project.Options{ID: id, Fs: d.Fs, Logger: d.Logger})
	if err != nil {
		return nil, fmt.Errorf("open local project %s: %w", root, err)
	}
	return editor, nil
}
