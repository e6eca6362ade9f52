package host

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/stellarlinkco/toolsdk/internal/config"
	"github.com/stellarlinkco/toolsdk/internal/toolconfig"
	"github.com/stellarlinkco/toolsdk/pkg/plugin"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
	"github.com/stellarlinkco/toolsdk/pkg/tools/browser"
	"github.com/stellarlinkco/toolsdk/pkg/tools/search"
)

// BuiltinPluginName is the plugin carrying the bundled tools.
const BuiltinPluginName = "builtin"

// builtinTools constructs the bundled tools from the host configuration and
// the per-tool overrides, skipping disabled ones.
func builtinTools(cfg *config.Config, overrides toolconfig.Set, opener browser.Opener) ([]tool.Tool, error) {
	var tools []tool.Tool

	if cfg.ToolEnabled(search.Name) && overrides.Enabled(search.Name) {
		sc := search.Config{MaxFileSize: cfg.Tools.MaxFileSize}
		if err := overrides.Decode(search.Name, &sc); err != nil {
			return nil, err
		}
		tools = append(tools, search.New(sc))
	}

	if cfg.ToolEnabled(browser.Name) && overrides.Enabled(browser.Name) {
		bc := browser.Config{Browser: browser.Browser(cfg.Tools.Browser)}
		if err := overrides.Decode(browser.Name, &bc); err != nil {
			return nil, err
		}
		switch bc.Browser {
		case "", browser.Default, browser.Chrome, browser.Firefox, browser.Safari, browser.Edge:
		default:
			return nil, fmt.Errorf("%s: %w: %q", browser.Name, browser.ErrUnsupportedBrowser, bc.Browser)
		}
		tools = append(tools, browser.New(bc, opener))
	}
	return tools, nil
}

func newBuiltinPlugin(cfg *config.Config, overrides toolconfig.Set, opener browser.Opener, fs afero.Fs, logger zerolog.Logger) (*plugin.Bundle, error) {
	tools, err := builtinTools(cfg, overrides, opener)
	if err != nil {
		return nil, err
	}
	return &plugin.Bundle{
		ID:      BuiltinPluginName,
		Members: tools,
		Sources: []plugin.DataSource{plugin.LocalDataSource{Fs: fs, Logger: logger}},
	}, nil
}
