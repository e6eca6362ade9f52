package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

var (
	successText = color.New(color.FgGreen).SprintFunc()
	errorText   = color.New(color.FgRed).SprintFunc()
	headerText  = color.New(color.Bold).SprintFunc()
	mutedText   = color.New(color.FgHiBlack).SprintFunc()
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, done, err := a.openHost(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			table := uitable.New()
			table.MaxColWidth = 60
			table.Wrap = true
			table.AddRow(headerText("NAME"), headerText("PLUGIN"), headerText("FEATURES"), headerText("DESCRIPTION"))
			for _, t := range h.Executor().Registry().List() {
				desc := t.Descriptor()
				owner, _ := h.Plugins().Owner(desc.Name)
				table.AddRow(desc.Name, owner, featureList(desc.Features), desc.Description)
			}
			fmt.Fprintln(a.stdout, table)
			return nil
		},
	}
}

func featureList(f tool.Features) string {
	var out []string
	for _, feat := range []struct {
		on   bool
		name string
	}{
		{f.MutatesResources, "mutates"},
		{f.IsStateful, "stateful"},
		{f.IsAsynchronous, "async"},
		{f.IsIdempotent, "idempotent"},
		{f.IsResourceIntensive, "intensive"},
		{f.RequiresNetwork, "network"},
	} {
		if feat.on {
			out = append(out, feat.name)
		}
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}

func newSchemaCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "schema <tool>",
		Short: "Print a tool's input schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, done, err := a.openHost(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			t, err := h.Executor().Registry().Get(args[0])
			if err != nil {
				return err
			}
			return writeSchema(a.stdout, t.InputSchema(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func writeSchema(w io.Writer, s *schema.Schema, output string) error {
	if s == nil {
		s = &schema.Schema{Type: "object"}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	switch output {
	case "json":
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <tool> <json>",
		Short: "Check tool input against the tool's schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, done, err := a.openHost(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			t, err := h.Executor().Registry().Get(args[0])
			if err != nil {
				return err
			}
			input, err := tool.ParseArguments(args[1])
			if err != nil {
				return err
			}
			if t.Validate(input) {
				fmt.Fprintln(a.stdout, successText("valid"))
				return nil
			}
			reason := "input rejected by tool"
			if v, err := schema.Compile(t.InputSchema()); err == nil {
				if verr := v.Validate(input); verr != nil {
					reason = verr.Error()
				}
			}
			fmt.Fprintln(a.stdout, errorText("invalid: "+reason))
			return tool.ErrInvalidInput
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		dest   string
		output string
		id     string
	)
	cmd := &cobra.Command{
		Use:   "run <tool> [json]",
		Short: "Run a tool against the project",
		Example: `  toolsdk run search_project '{"contentPattern": "TODO", "filePattern": "*.go"}'
  toolsdk run open_in_browser '{"urls": ["README.md"]}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, done, err := a.openHost(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			name := args[0]
			input := map[string]any{}
			if len(args) == 2 {
				if input, err = tool.ParseArguments(args[1]); err != nil {
					return err
				}
			}

			exec := h.Executor()
			out, runErr := exec.Run(cmd.Context(), h.Conversation(), h.Editor(), tool.Call{ID: id, Name: name, Input: input})
			if out == nil {
				return runErr
			}
			if output == "json" {
				return writeRunJSON(a.stdout, out, runErr)
			}

			d := format.Destination(dest)
			renderer := format.NewRenderer()
			writeEntry(a.stdout, renderer.Entry(exec.FormatUse(name, input, d), d))
			if runErr != nil {
				fmt.Fprintln(a.stdout, errorText(runErr.Error()))
				return runErr
			}
			if out.Result != nil {
				writeEntry(a.stdout, renderer.Entry(exec.FormatResult(name, out.Result.Content, d), d))
				if out.Result.Finalization != nil {
					fmt.Fprintln(a.stdout, mutedText("finalization pending for "+out.Invocation.ID))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", string(format.Console), "render destination: console, rich or plain")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	cmd.Flags().StringVar(&id, "id", "", "invocation id (default random)")
	return cmd
}

func writeEntry(w io.Writer, e format.RenderedEntry) {
	title := e.Title
	if e.Subtitle != "" {
		title += "  " + e.Subtitle
	}
	fmt.Fprintln(w, title)
	if e.Content != "" {
		fmt.Fprintln(w, e.Content)
	}
	fmt.Fprintln(w)
}

type runJSON struct {
	Invocation tool.Invocation `json:"invocation"`
	Error      string          `json:"error,omitempty"`
	Text       string          `json:"text,omitempty"`
	Response   string          `json:"response,omitempty"`
	Data       any             `json:"data,omitempty"`
}

func writeRunJSON(w io.Writer, out *tool.Outcome, runErr error) error {
	doc := runJSON{Invocation: out.Invocation}
	if runErr != nil {
		doc.Error = runErr.Error()
	} else if out.Result != nil {
		doc.Text = out.Result.Content.Text()
		doc.Response = out.Result.Response
		doc.Data = out.Result.Content.Data
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return runErr
}
