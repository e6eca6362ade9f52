// Package tool defines the contract every tool implements and the host-side
// machinery that drives it: a registry, an executor that validates before it
// executes, and a table of pending result finalizations.
package tool

import (
	"context"
	"sync"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/message"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
)

// Features declares operational properties hosts may use for scheduling and
// permission decisions.
type Features struct {
	MutatesResources    bool `json:"mutatesResources" yaml:"mutatesResources"`
	IsStateful          bool `json:"isStateful" yaml:"isStateful"`
	IsAsynchronous      bool `json:"isAsynchronous" yaml:"isAsynchronous"`
	IsIdempotent        bool `json:"isIdempotent" yaml:"isIdempotent"`
	IsResourceIntensive bool `json:"isResourceIntensive" yaml:"isResourceIntensive"`
	RequiresNetwork     bool `json:"requiresNetwork" yaml:"requiresNetwork"`
}

// Descriptor identifies a tool. It is fixed for the lifetime of an instance.
type Descriptor struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Features      Features       `json:"features"`
}

func (d Descriptor) clone() Descriptor {
	if d.Configuration != nil {
		cfg := make(map[string]any, len(d.Configuration))
		for k, v := range d.Configuration {
			cfg[k] = v
		}
		d.Configuration = cfg
	}
	return d
}

// ValidationOutcome is attached to an invocation by the host after
// validating its input.
type ValidationOutcome struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Invocation is one request to run a tool.
type Invocation struct {
	ID         string             `json:"id"`
	ToolName   string             `json:"toolName"`
	Input      map[string]any     `json:"input"`
	Thinking   string             `json:"thinking,omitempty"`
	Validation *ValidationOutcome `json:"validation,omitempty"`
}

// ResultContent is what a tool hands back to the model. Parts holds text or
// structured content; Data is the structured payload formatters read.
type ResultContent struct {
	Parts []message.Part
	Data  any
}

// Text returns the concatenated text parts.
func (c ResultContent) Text() string {
	return message.PlainText(c.Parts)
}

// TextContent wraps a string as result content.
func TextContent(s string, data any) ResultContent {
	return ResultContent{Parts: []message.Part{message.Text(s)}, Data: data}
}

// Result is the outcome of a successful Execute. Failures are returned as
// errors instead.
type Result struct {
	Content ResultContent
	// Response is the human readable summary shown to the user.
	Response string
	// HostResponse is optional structured data for the host itself.
	HostResponse any
	// Finalization, when set, must be resolved once the host knows the id of
	// the message carrying this result.
	Finalization *Finalization
}

// Tool is the contract every tool implements.
type Tool interface {
	Descriptor() Descriptor
	// InputSchema returns the JSON Schema of accepted input; nil means the
	// tool takes no input.
	InputSchema() *schema.Schema
	// Validate reports whether input conforms to InputSchema. It must not
	// panic or perform I/O.
	Validate(input any) bool
	Execute(ctx context.Context, ic interaction.Interaction, inv Invocation, editor project.Editor) (*Result, error)
	FormatUse(input map[string]any, dest format.Destination) format.Entry
	FormatResult(content ResultContent, dest format.Destination) format.Entry
}

// Base carries the descriptor and schema shared by most tools and implements
// Descriptor, InputSchema and Validate. Embed it and supply the rest.
type Base struct {
	desc   Descriptor
	schema *schema.Schema

	once      sync.Once
	validator *schema.Validator
}

// NewBase pairs a descriptor with its input schema.
func NewBase(desc Descriptor, s *schema.Schema) *Base {
	return &Base{desc: desc, schema: s}
}

func (b *Base) Descriptor() Descriptor { return b.desc.clone() }

func (b *Base) InputSchema() *schema.Schema { return b.schema }

// Validate compiles the schema on first use. A schema that fails to compile
// rejects all input.
func (b *Base) Validate(input any) bool {
	b.once.Do(func() {
		v, err := schema.Compile(b.schema)
		if err == nil {
			b.validator = v
		}
	})
	if b.validator == nil {
		return false
	}
	return b.validator.Check(input)
}
