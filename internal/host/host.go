// Package host assembles a runnable tool host from configuration: a
// conversation store, the project, the plugin and tool registries and an
// executor. It serves the tools over HTTP and MCP.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/stellarlinkco/toolsdk/internal/config"
	"github.com/stellarlinkco/toolsdk/internal/toolconfig"
	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/interaction/sqlitestore"
	"github.com/stellarlinkco/toolsdk/pkg/mcpserver"
	"github.com/stellarlinkco/toolsdk/pkg/plugin"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
	"github.com/stellarlinkco/toolsdk/pkg/tools/browser"
)

const shutdownTimeout = 5 * time.Second

// Options carries the host's injectable collaborators. Every field is
// optional.
type Options struct {
	Logger zerolog.Logger
	// Fs backs the project; defaults to the OS filesystem.
	Fs afero.Fs
	// Opener launches URLs for open_in_browser.
	Opener browser.Opener
	// Store replaces the store selected by the configuration.
	Store interaction.Store
	// Plugins are registered after the builtin plugin.
	Plugins []plugin.Plugin
	// SignalChan replaces SIGINT/SIGTERM delivery in Run.
	SignalChan chan os.Signal
}

// Host owns the long-lived pieces of a tool host.
type Host struct {
	cfg    *config.Config
	logger zerolog.Logger
	opener browser.Opener

	store    interaction.Store
	conv     *interaction.Conversation
	editor   project.Editor
	plugins  *plugin.Registry
	executor *tool.Executor
	metrics  *prometheus.Registry

	mu         sync.Mutex
	server     *http.Server
	signalChan chan os.Signal
	closeOnce  sync.Once
}

// New wires a host. The caller must call Shutdown.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Host, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger.With().Str("component", "host").Logger()
	h := &Host{
		cfg:        cfg,
		logger:     logger,
		opener:     opts.Opener,
		signalChan: opts.SignalChan,
		metrics:    prometheus.NewRegistry(),
	}
	h.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := openStore(cfg.Store, opts.Store)
	if err != nil {
		return nil, err
	}
	h.store = store

	conv, err := interaction.NewConversation(ctx, store, interaction.Options{Logger: opts.Logger})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	h.conv = conv

	overrides, err := toolconfig.Load(cfg.Tools.ConfigDir, opts.Logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load tool configs: %w", err)
	}

	h.plugins = plugin.NewRegistry(tool.NewRegistry(), opts.Logger)
	builtin, err := newBuiltinPlugin(cfg, overrides, opts.Opener, opts.Fs, opts.Logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	plugins := []plugin.Plugin{builtin}
	if spec := strings.TrimSpace(cfg.Store.FlushSchedule); spec != "" {
		plugins = append(plugins, newUsageFlush(spec, conv, opts.Logger))
	}
	for _, p := range append(plugins, opts.Plugins...) {
		if err := h.plugins.Register(p); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("register plugin: %w", err)
		}
	}

	source, err := h.plugins.DataSource(plugin.LocalDataSourceName)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	editor, err := source.Open(ctx, map[string]any{"root": cfg.Project.Root, "id": cfg.Project.ID})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	h.editor = editor

	metrics, err := tool.NewMetrics(h.metrics)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	h.executor = tool.NewExecutor(tool.Options{
		Registry:       h.plugins.Tools(),
		Metrics:        metrics,
		Logger:         opts.Logger,
		MaxConcurrency: cfg.Tools.MaxConcurrency,
	})

	logger.Info().
		Strs("tools", h.plugins.Tools().Names()).
		Strs("plugins", h.plugins.Names()).
		Str("project", editor.ProjectRoot()).
		Str("store", cfg.Store.Driver).
		Msg("host ready")
	return h, nil
}

func openStore(cfg config.StoreConfig, injected interaction.Store) (interaction.Store, error) {
	if injected != nil {
		return injected, nil
	}
	switch cfg.Driver {
	case config.StoreSQLite:
		store, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case "", config.StoreMemory:
		return interaction.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (h *Host) Executor() *tool.Executor                { return h.executor }
func (h *Host) Editor() project.Editor                  { return h.editor }
func (h *Host) Conversation() *interaction.Conversation { return h.conv }
func (h *Host) Plugins() *plugin.Registry               { return h.plugins }
func (h *Host) Metrics() *prometheus.Registry           { return h.metrics }
func (h *Host) Logger() zerolog.Logger                  { return h.logger }

// Config returns the configuration currently in effect.
func (h *Host) Config() *config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Reconfigure rebuilds the registered builtin tools from cfg. Tools enabled
// or disabled by cfg take effect on restart.
func (h *Host) Reconfigure(cfg *config.Config) error {
	overrides, err := toolconfig.Load(cfg.Tools.ConfigDir, h.logger)
	if err != nil {
		return fmt.Errorf("load tool configs: %w", err)
	}
	tools, err := builtinTools(cfg, overrides, h.opener)
	if err != nil {
		return err
	}
	registry := h.plugins.Tools()
	var replaced []string
	for _, t := range tools {
		name := t.Descriptor().Name
		if owner, ok := h.plugins.Owner(name); !ok || owner != BuiltinPluginName {
			continue
		}
		if err := registry.Replace(t); err != nil {
			return err
		}
		replaced = append(replaced, name)
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	h.logger.Info().Strs("tools", replaced).Msg("tools reconfigured")
	return nil
}

// ServeMCP serves the executor's tools on transport until ctx is done or the
// client disconnects.
func (h *Host) ServeMCP(ctx context.Context, transport mcp.Transport) error {
	cfg := h.Config()
	server, err := mcpserver.New(mcpserver.Options{
		Name:        cfg.MCP.Name,
		Version:     cfg.MCP.Version,
		Executor:    h.executor,
		Interaction: h.conv,
		Editor:      h.editor,
		Logger:      h.logger,
	})
	if err != nil {
		return err
	}
	if err := h.plugins.Start(ctx); err != nil {
		return fmt.Errorf("start plugins: %w", err)
	}
	h.logger.Info().Msg("serving MCP")
	return server.Run(ctx, transport)
}

// Run starts the plugins and the HTTP gateway, then blocks until a signal
// arrives or ctx is done.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := h.plugins.Start(ctx); err != nil {
		return fmt.Errorf("start plugins: %w", err)
	}

	cfg := h.Config()
	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	server := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 10 * time.Second}
	h.mu.Lock()
	h.server = server
	h.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	h.logger.Info().Str("addr", ln.Addr().String()).Msg("gateway listening")

	sigCh := h.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	select {
	case <-sigCh:
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = h.Shutdown(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	}

	h.logger.Info().Msg("shutting down")
	return h.Shutdown(context.Background())
}

// Shutdown stops the gateway and plugins, flushes usage and closes the
// store. It is safe to call more than once.
func (h *Host) Shutdown(ctx context.Context) error {
	var errs []error
	h.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		h.mu.Lock()
		server := h.server
		h.mu.Unlock()
		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop gateway: %w", err))
			}
		}
		if err := h.plugins.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := h.conv.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush usage: %w", err))
		}
		if err := h.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	})
	return errors.Join(errs...)
}
