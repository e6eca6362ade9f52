package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/interaction"
	"github.com/stellarlinkco/toolsdk/pkg/project"
	"github.com/stellarlinkco/toolsdk/pkg/schema"
)

const (
	defaultValidatorCacheSize = 128
	tracerName                = "github.com/stellarlinkco/toolsdk/pkg/tool"
)

// Options configures an Executor. Every field is optional.
type Options struct {
	Registry      *Registry
	Finalizations *FinalizationTable
	Metrics       *Metrics
	Logger        zerolog.Logger
	Tracer        trace.Tracer
	// ValidatorCacheSize bounds the compiled schemas kept for failure
	// reasons.
	ValidatorCacheSize int
	// MaxConcurrency bounds RunAll; zero means unbounded.
	MaxConcurrency int
}

// Call is a request to run a named tool.
type Call struct {
	ID       string
	Name     string
	Input    map[string]any
	Thinking string
}

// Outcome records one call through the pipeline.
type Outcome struct {
	Invocation  Invocation
	Result      *Result
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Executor drives tools through the host call sequence: look up, fetch the
// schema, validate, execute, record the outcome.
type Executor struct {
	registry      *Registry
	finalizations *FinalizationTable
	metrics       *Metrics
	logger        zerolog.Logger
	tracer        trace.Tracer
	validators    *lru.Cache[string, *schema.Validator]
	maxConc       int
}

func NewExecutor(opts Options) *Executor {
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	table := opts.Finalizations
	if table == nil {
		table = NewFinalizationTable()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	size := opts.ValidatorCacheSize
	if size <= 0 {
		size = defaultValidatorCacheSize
	}
	cache, _ := lru.New[string, *schema.Validator](size)

	return &Executor{
		registry:      registry,
		finalizations: table,
		metrics:       opts.Metrics,
		logger:        opts.Logger.With().Str("component", "executor").Logger(),
		tracer:        tracer,
		validators:    cache,
		maxConc:       opts.MaxConcurrency,
	}
}

func (e *Executor) Registry() *Registry               { return e.registry }
func (e *Executor) Finalizations() *FinalizationTable { return e.finalizations }

// Resolve fires the pending finalization of invocationID.
func (e *Executor) Resolve(ctx context.Context, invocationID, messageID string) error {
	return e.finalizations.Resolve(ctx, invocationID, messageID)
}

// Run executes one call. Invalid input yields ErrInvalidInput without
// calling Execute. Execution outcomes are reported to ic once.
func (e *Executor) Run(ctx context.Context, ic interaction.Interaction, editor project.Editor, call Call) (*Outcome, error) {
	if strings.TrimSpace(call.Name) == "" {
		return nil, errors.New("tool name is empty")
	}
	t, err := e.registry.Get(call.Name)
	if err != nil {
		return nil, err
	}

	inv := Invocation{
		ID:       call.ID,
		ToolName: call.Name,
		Input:    cloneInput(call.Input),
		Thinking: call.Thinking,
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	log := e.logger.With().Str("tool", call.Name).Str("invocation", inv.ID).Logger()

	ctx, span := e.tracer.Start(ctx, "tool.run", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.invocation_id", inv.ID),
	))
	defer span.End()

	out := &Outcome{Invocation: inv, StartedAt: time.Now()}

	if !t.Validate(inv.Input) {
		reason := e.invalidReason(t, inv.Input)
		inv.Validation = &ValidationOutcome{Valid: false, Reason: reason}
		out.Invocation = inv
		out.Err = fmt.Errorf("%w for %s: %s", ErrInvalidInput, call.Name, reason)
		out.CompletedAt = time.Now()
		e.metrics.observe(call.Name, OutcomeInvalid, 0)
		span.SetStatus(codes.Error, "invalid input")
		log.Warn().Str("reason", reason).Msg("tool input rejected")
		return out, out.Err
	}
	inv.Validation = &ValidationOutcome{Valid: true}
	out.Invocation = inv

	res, execErr := e.execute(ctx, t, ic, inv, editor)
	out.Result, out.Err, out.CompletedAt = res, execErr, time.Now()
	elapsed := out.CompletedAt.Sub(out.StartedAt)

	if ic != nil {
		ic.RecordToolUse(call.Name, execErr == nil)
	}
	if execErr != nil {
		e.metrics.observe(call.Name, OutcomeError, elapsed)
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		log.Error().Err(execErr).Dur("elapsed", elapsed).Msg("tool failed")
		return out, execErr
	}

	e.metrics.observe(call.Name, OutcomeSuccess, elapsed)
	if res != nil && res.Finalization != nil {
		if err := e.finalizations.Register(inv.ID, res.Finalization); err != nil {
			log.Warn().Err(err).Msg("finalization not registered")
		}
	}
	log.Debug().Dur("elapsed", elapsed).Msg("tool completed")
	return out, nil
}

func (e *Executor) execute(ctx context.Context, t Tool, ic interaction.Interaction, inv Invocation, editor project.Editor) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("tool %s panicked: %v", inv.ToolName, r)
		}
	}()
	return t.Execute(ctx, ic, inv, editor)
}

func (e *Executor) invalidReason(t Tool, input map[string]any) string {
	// Keyed by instance so a replaced tool never reuses a stale schema.
	key := fmt.Sprintf("%s@%p", t.Descriptor().Name, t)
	v, ok := e.validators.Get(key)
	if !ok {
		compiled, err := schema.Compile(t.InputSchema())
		if err != nil {
			return err.Error()
		}
		v = compiled
		e.validators.Add(key, v)
	}
	if err := v.Validate(input); err != nil {
		return err.Error()
	}
	return "input rejected by tool"
}

// RunAll executes calls concurrently. Outcomes keep the order of calls;
// failures are reported per outcome and never cancel sibling calls.
func (e *Executor) RunAll(ctx context.Context, ic interaction.Interaction, editor project.Editor, calls []Call) []Outcome {
	outcomes := make([]Outcome, len(calls))
	var g errgroup.Group
	if e.maxConc > 0 {
		g.SetLimit(e.maxConc)
	}
	for i := range calls {
		g.Go(func() error {
			call := calls[i]
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Invocation: Invocation{ID: call.ID, ToolName: call.Name}, Err: err}
				return nil
			}
			out, err := e.Run(ctx, ic, editor, call)
			if out == nil {
				out = &Outcome{Invocation: Invocation{ID: call.ID, ToolName: call.Name}, Err: err}
			}
			outcomes[i] = *out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// FormatUse renders a tool use entry. A formatter that panics is replaced by
// an error entry.
func (e *Executor) FormatUse(name string, input map[string]any, dest format.Destination) (entry format.Entry) {
	t, err := e.registry.Get(name)
	if err != nil {
		return format.ErrorEntry(format.TitleToolUse, name, err.Error())
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("tool", name).Interface("panic", r).Msg("format use failed")
			entry = format.ErrorEntry(format.TitleToolUse, name, fmt.Sprint(r))
		}
	}()
	return t.FormatUse(input, dest)
}

// FormatResult renders a tool result entry with the same fallback as
// FormatUse.
func (e *Executor) FormatResult(name string, content ResultContent, dest format.Destination) (entry format.Entry) {
	t, err := e.registry.Get(name)
	if err != nil {
		return format.ErrorEntry(format.TitleToolResult, name, err.Error())
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("tool", name).Interface("panic", r).Msg("format result failed")
			entry = format.ErrorEntry(format.TitleToolResult, name, fmt.Sprint(r))
		}
	}()
	return t.FormatResult(content, dest)
}
