package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/toolsdk/internal/config"
)

func newServeCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP",
		Long: heredoc.Doc(`
			Start the HTTP gateway on gateway.host:gateway.port.

			Endpoints:
			  GET  /tools                 list tools
			  GET  /tools/{name}/schema   input schema
			  POST /tools/{name}/run      run a tool
			  POST /tools/{name}/format   render a tool use entry
			  POST /finalizations/{id}    resolve a pending finalization
			  GET  /usage                 tool usage of the conversation
			  GET  /metrics               Prometheus metrics
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, done, err := a.openHost(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if watch {
				logger := h.Logger()
				w, err := config.NewWatcher(a.path(), func(cfg *config.Config) {
					if a.projectRoot != "" {
						cfg.Project.Root = a.projectRoot
					}
					if err := h.Reconfigure(cfg); err != nil {
						logger.Error().Err(err).Msg("reconfigure failed")
					}
				}, config.WithWatchLogger(logger))
				if err != nil {
					return err
				}
				if err := w.Start(cmd.Context()); err != nil {
					return err
				}
				defer w.Stop()
			}
			return h.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", true, "reload tool settings when the config file changes")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools to an MCP client over stdio",
		Long: heredoc.Doc(`
			Serve every enabled tool as an MCP server on stdin/stdout.
			Logs are written to stderr.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, done, err := a.openHost(ctx)
			if err != nil {
				return err
			}
			defer done()

			err = h.ServeMCP(ctx, &mcp.StdioTransport{})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
