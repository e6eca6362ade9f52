package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/toolsdk/internal/config"
	"github.com/stellarlinkco/toolsdk/internal/toolconfig"
)

var searchToolTemplate = heredoc.Doc(`
	---
	tool: search_project
	enabled: true
	tags: [files, search]
	settings:
	  maxFileSize: 10485760
	  ignore:
	    - node_modules/
	---
	Settings for search_project. Patterns under ignore are added to the
	project's .gitignore rules.
`)

var browserToolTemplate = heredoc.Doc(`
	---
	tool: open_in_browser
	enabled: true
	settings:
	  browser: default
	---
	Settings for open_in_browser. browser is one of default, chrome,
	firefox, safari or edge.
`)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and tool settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path()
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}

			if _, err := os.Stat(path); os.IsNotExist(err) {
				cfg := config.DefaultConfig()
				if a.projectRoot != "" {
					cfg.Project.Root = a.projectRoot
				}
				if err := config.SaveConfigTo(path, cfg); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				fmt.Fprintf(a.stdout, "Created config: %s\n", path)
			} else {
				fmt.Fprintf(a.stdout, "Config already exists: %s\n", path)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.Tools.ConfigDir
			for name, content := range map[string]string{
				"search":  searchToolTemplate,
				"browser": browserToolTemplate,
			} {
				if err := a.writeIfNotExists(filepath.Join(dir, name, toolconfig.FileName), content); err != nil {
					return err
				}
			}

			fmt.Fprintf(a.stdout, "Tool settings: %s\n", dir)
			fmt.Fprintln(a.stdout, "\nNext steps:")
			fmt.Fprintf(a.stdout, "  1. Edit %s to set project.root\n", path)
			fmt.Fprintln(a.stdout, "  2. Run 'toolsdk list' to see the tools")
			fmt.Fprintln(a.stdout, "  3. Run 'toolsdk mcp' from your MCP client")
			return nil
		},
	}
}

func (a *app) writeIfNotExists(path, content string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "  Created: %s\n", path)
	return nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				fmt.Fprintf(a.stdout, "Config: %s\n", errorText(err.Error()))
				return nil
			}

			table := uitable.New()
			table.AddRow("Config:", a.path())
			table.AddRow("Project:", cfg.Project.Root)
			if _, err := os.Stat(cfg.Project.Root); err != nil {
				table.AddRow("", errorText("project root not found"))
			}
			store := cfg.Store.Driver
			if cfg.Store.Driver == config.StoreSQLite {
				store += " (" + cfg.Store.Path + ")"
			}
			table.AddRow("Store:", store)
			table.AddRow("Gateway:", net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port)))
			enabled := "all"
			if len(cfg.Tools.Enabled) > 0 {
				enabled = strings.Join(cfg.Tools.Enabled, ", ")
			}
			table.AddRow("Tools:", enabled)

			settings, err := toolconfig.Load(cfg.Tools.ConfigDir, zerolog.Nop())
			switch {
			case err != nil:
				table.AddRow("Tool settings:", errorText(err.Error()))
			case len(settings) == 0:
				table.AddRow("Tool settings:", mutedText("none"))
			default:
				for _, name := range sortedKeys(settings) {
					state := successText("enabled")
					if !settings[name].Enabled {
						state = mutedText("disabled")
					}
					table.AddRow("Tool settings:", name+" "+state)
				}
			}
			fmt.Fprintln(a.stdout, table)
			return nil
		},
	}
}

func sortedKeys(set toolconfig.Set) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
