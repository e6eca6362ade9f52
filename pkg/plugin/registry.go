package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

var ErrDataSourceNotFound = errors.New("datasource not found")

// Registry holds loaded plugins and the capabilities they contributed.
// Tools go straight into the shared tool registry so executors see them.
type Registry struct {
	mu     sync.RWMutex
	tools  *tool.Registry
	logger zerolog.Logger

	plugins     map[string]Plugin
	pluginOrder []string

	// toolOwners maps tool name to plugin name.
	toolOwners  map[string]string
	dataSources map[string]DataSource
	started     []LifecyclePlugin
}

// NewRegistry returns a plugin registry feeding tools. A nil tools registry
// gets a fresh one.
func NewRegistry(tools *tool.Registry, logger zerolog.Logger) *Registry {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	return &Registry{
		tools:       tools,
		logger:      logger.With().Str("component", "plugin").Logger(),
		plugins:     make(map[string]Plugin),
		toolOwners:  make(map[string]string),
		dataSources: make(map[string]DataSource),
	}
}

// Tools is the registry tools are loaded into.
func (r *Registry) Tools() *tool.Registry { return r.tools }

// Register loads p. Either all of its tools and data sources are added or
// none are.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return errors.New("plugin is nil")
	}
	name := strings.TrimSpace(p.Name())
	if name == "" {
		return errors.New("plugin name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %q is already registered", name)
	}

	var sources []DataSource
	if dp, ok := p.(DataSourceProvider); ok {
		seen := make(map[string]bool)
		for _, ds := range dp.DataSources() {
			if ds == nil {
				continue
			}
			dsName := ds.Name()
			if _, taken := r.dataSources[dsName]; taken || seen[dsName] {
				return fmt.Errorf("plugin %q: datasource %q is already registered", name, dsName)
			}
			seen[dsName] = true
			sources = append(sources, ds)
		}
	}

	var added []string
	if tp, ok := p.(ToolProvider); ok {
		for _, t := range tp.Tools() {
			if err := r.tools.Register(t); err != nil {
				for _, toolName := range added {
					r.tools.Unregister(toolName)
				}
				return fmt.Errorf("plugin %q: %w", name, err)
			}
			added = append(added, t.Descriptor().Name)
		}
	}

	for _, toolName := range added {
		r.toolOwners[toolName] = name
	}
	for _, ds := range sources {
		r.dataSources[ds.Name()] = ds
	}
	r.plugins[name] = p
	r.pluginOrder = append(r.pluginOrder, name)
	r.logger.Debug().Str("plugin", name).Strs("tools", added).Int("datasources", len(sources)).Msg("plugin registered")
	return nil
}

// Plugin returns a loaded plugin by name.
func (r *Registry) Plugin(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.pluginOrder))
	copy(out, r.pluginOrder)
	return out
}

// Owner reports which plugin contributed the named tool.
func (r *Registry) Owner(toolName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.toolOwners[toolName]
	return owner, ok
}

// DataSource looks up a data source by name.
func (r *Registry) DataSource(name string) (DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.dataSources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDataSourceNotFound, name)
	}
	return ds, nil
}

// DataSourceNames returns the sorted data source names.
func (r *Registry) DataSourceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dataSources))
	for name := range r.dataSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start starts lifecycle plugins in registration order. When one fails the
// ones already started are stopped again.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.started) > 0 {
		return errors.New("plugins already started")
	}

	for _, name := range r.pluginOrder {
		lp, ok := r.plugins[name].(LifecyclePlugin)
		if !ok {
			continue
		}
		if err := lp.Start(ctx); err != nil {
			stopErr := r.stopLocked(ctx)
			return errors.Join(fmt.Errorf("start plugin %q: %w", name, err), stopErr)
		}
		r.started = append(r.started, lp)
		r.logger.Info().Str("plugin", name).Msg("plugin started")
	}
	return nil
}

// Stop stops started plugins in reverse order and joins their errors.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(ctx)
}

func (r *Registry) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(r.started) - 1; i >= 0; i-- {
		lp := r.started[i]
		if err := lp.Stop(ctx); err != nil {
			r.logger.Warn().Err(err).Str("plugin", lp.Name()).Msg("plugin stop failed")
			errs = append(errs, fmt.Errorf("stop plugin %q: %w", lp.Name(), err))
		}
	}
	r.started = nil
	return errors.Join(errs...)
}
