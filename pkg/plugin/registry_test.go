package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/toolsdk/pkg/tool"
	"github.com/stellarlinkco/toolsdk/pkg/tools/browser"
	"github.com/stellarlinkco/toolsdk/pkg/tools/search"
)

type lifecycle struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (l *lifecycle) Name() string { return l.name }

func (l *lifecycle) Start(context.Context) error {
	*l.events = append(*l.events, "start "+l.name)
	return l.startErr
}

func (l *lifecycle) Stop(context.Context) error {
	*l.events = append(*l.events, "stop "+l.name)
	return l.stopErr
}

func TestRegisterLoadsTools(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	err := r.Register(&Bundle{
		ID:      "builtin",
		Members: []tool.Tool{search.New(search.Config{}), browser.New(browser.Config{}, nil)},
		Sources: []DataSource{LocalDataSource{}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"open_in_browser", "search_project"}, r.Tools().Names())
	owner, ok := r.Owner(search.Name)
	require.True(t, ok)
	assert.Equal(t, "builtin", owner)
	assert.Equal(t, []string{"builtin"}, r.Names())
	assert.Equal(t, []string{LocalDataSourceName}, r.DataSourceNames())

	p, ok := r.Plugin("builtin")
	require.True(t, ok)
	assert.Equal(t, "builtin", p.Name())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil, zerolog.Nop())
	require.NoError(t, r.Register(&Bundle{ID: "one", Members: []tool.Tool{search.New(search.Config{})}}))

	err := r.Register(&Bundle{ID: "one"})
	require.EqualError(t, err, `plugin "one" is already registered`)

	// A clashing tool rolls back the rest of the plugin.
	err = r.Register(&Bundle{ID: "two", Members: []tool.Tool{
		browser.New(browser.Config{}, nil),
		search.New(search.Config{}),
	}})
	require.ErrorIs(t, err, tool.ErrDuplicateTool)
	assert.Equal(t, []string{"search_project"}, r.Tools().Names())
	_, ok := r.Owner(browser.Name)
	assert.False(t, ok)
	assert.Equal(t, []string{"one"}, r.Names())

	require.NoError(t, r.Register(&Bundle{ID: "three", Sources: []DataSource{LocalDataSource{}}}))
	err = r.Register(&Bundle{ID: "four", Sources: []DataSource{LocalDataSource{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `datasource "local" is already registered`)

	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(&Bundle{ID: "  "}))
}

func TestStartStopOrder(t *testing.T) {
	var events []string
	r := NewRegistry(nil, zerolog.Nop())
	require.NoError(t, r.Register(&lifecycle{name: "a", events: &events}))
	require.NoError(t, r.Register(&Bundle{ID: "plain"}))
	require.NoError(t, r.Register(&lifecycle{name: "b", events: &events}))

	require.NoError(t, r.Start(context.Background()))
	require.Error(t, r.Start(context.Background()))
	require.NoError(t, r.Stop(context.Background()))
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)

	// Stopping twice is a no-op.
	require.NoError(t, r.Stop(context.Background()))
}

func TestStartFailureStopsStartedPlugins(t *testing.T) {
	var events []string
	r := NewRegistry(nil, zerolog.Nop())
	require.NoError(t, r.Register(&lifecycle{name: "a", events: &events}))
	require.NoError(t, r.Register(&lifecycle{name: "b", startErr: errors.New("port in use"), events: &events}))
	require.NoError(t, r.Register(&lifecycle{name: "c", events: &events}))

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `start plugin "b": port in use`)
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
}

func TestLocalDataSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/srv/site", 0o755))
	ds := LocalDataSource{Fs: fs}

	editor, err := ds.Open(context.Background(), map[string]any{"root": "/srv/site", "id": "site"})
	require.NoError(t, err)
	assert.Equal(t, "site", editor.ProjectID())
	assert.Equal(t, "/srv/site", editor.ProjectRoot())

	_, err = ds.Open(context.Background(), map[string]any{})
	require.ErrorIs(t, err, ErrMissingRoot)

	_, err = ds.Open(context.Background(), map[string]any{"root": "/srv/missing"})
	require.Error(t, err)

	r := NewRegistry(nil, zerolog.Nop())
	_, err = r.DataSource("local")
	require.ErrorIs(t, err, ErrDataSourceNotFound)
}
