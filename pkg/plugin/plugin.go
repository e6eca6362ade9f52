// Package plugin bundles tools and data sources into named plugins and loads
// them into a tool registry.
package plugin

import (
	"context"

	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

// Plugin is the interface every plugin implements. Capabilities are exposed
// through the optional interfaces below.
type Plugin interface {
	// Name is the unique plugin identifier.
	Name() string
}

// ToolProvider is implemented by plugins that contribute tools.
type ToolProvider interface {
	Plugin
	Tools() []tool.Tool
}

// DataSourceProvider is implemented by plugins that contribute data sources.
type DataSourceProvider interface {
	Plugin
	DataSources() []DataSource
}

// LifecyclePlugin is implemented by plugins with background work.
type LifecyclePlugin interface {
	Plugin

	// Start is called after every plugin has been registered.
	Start(ctx context.Context) error

	// Stop is called on shutdown, in reverse registration order.
	Stop(ctx context.Context) error
}

// DataSource opens a project from host supplied configuration.
type DataSource interface {
	Name() string
	Open(ctx context.Context, config map[string]any) (project.Editor, error)
}

// Bundle is a ToolProvider and DataSourceProvider assembled from values.
type Bundle struct {
	ID      string
	Members []tool.Tool
	Sources []DataSource
}

func (b *Bundle) Name() string               { return b.ID }
func (b *Bundle) Tools() []tool.Tool         { return b.Members }
func (b *Bundle) DataSources() []DataSource { return b.Sources }

var (
	_ ToolProvider       = (*Bundle)(nil)
	_ DataSourceProvider = (*Bundle)(nil)
)
