package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/stellarlinkco/toolsdk/internal/config"
	"github.com/stellarlinkco/toolsdk/internal/host"
	"github.com/stellarlinkco/toolsdk/internal/logging"
)

// app holds the state shared by every command.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	projectRoot string
	logLevel    string

	// hostOpts lets tests inject collaborators into the host.
	hostOpts host.Options
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "toolsdk",
		Short: "toolsdk - run and serve project tools",
		Long: heredoc.Doc(`
			toolsdk hosts a registry of tools that work on a project directory.

			Tools can be listed, inspected, validated and run from the command
			line, served over HTTP with "toolsdk serve" or offered to an MCP
			client over stdio with "toolsdk mcp".
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default ~/.toolsdk/config.json)")
	flags.StringVarP(&a.projectRoot, "project", "p", "", "project root directory (overrides project.root)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (overrides log.level)")

	root.AddCommand(
		newListCmd(a),
		newSchemaCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newInitCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) path() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigFrom(a.path())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.projectRoot != "" {
		cfg.Project.Root = a.projectRoot
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	return cfg, nil
}

// openHost loads the configuration and builds a host. The returned func
// shuts the host down and closes the log file.
func (a *app) openHost(ctx context.Context) (*host.Host, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closer := logging.New(cfg.Log, a.stderr)
	opts := a.hostOpts
	opts.Logger = logger
	h, err := host.New(ctx, cfg, opts)
	if err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("create host: %w", err)
	}
	return h, func() {
		if err := h.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
		_ = closer.Close()
	}, nil
}

func main() {
	undo, _ := maxprocs.Set()
	defer undo()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText("Error: "+err.Error()))
		undo()
		os.Exit(1)
	}
}
