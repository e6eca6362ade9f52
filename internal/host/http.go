package host

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stellarlinkco/toolsdk/pkg/format"
	"github.com/stellarlinkco/toolsdk/pkg/message"
	"github.com/stellarlinkco/toolsdk/pkg/tool"
)

type runRequest struct {
	ID          string             `json:"id"`
	Input       json.RawMessage    `json:"input"`
	Thinking    string             `json:"thinking"`
	Destination format.Destination `json:"destination"`
}

type formatRequest struct {
	Input       map[string]any     `json:"input"`
	Destination format.Destination `json:"destination"`
}

type finalizeRequest struct {
	MessageID string `json:"messageId" binding:"required"`
}

type toolSummary struct {
	tool.Descriptor
	Plugin string `json:"plugin,omitempty"`
}

type runResponse struct {
	Invocation tool.Invocation       `json:"invocation"`
	IsError    bool                  `json:"isError"`
	Error      string                `json:"error,omitempty"`
	Text       string                `json:"text,omitempty"`
	Response   string                `json:"response,omitempty"`
	Parts      []json.RawMessage     `json:"parts,omitempty"`
	Data       any                   `json:"data,omitempty"`
	Pending    bool                  `json:"pendingFinalization,omitempty"`
	Use        format.RenderedEntry  `json:"use"`
	Result     *format.RenderedEntry `json:"result,omitempty"`
	DurationMS int64                 `json:"durationMs"`
}

// Handler returns the gateway's HTTP API.
func (h *Host) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), h.requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics, promhttp.HandlerOpts{})))
	engine.GET("/usage", h.handleUsage)

	tools := engine.Group("/tools")
	tools.GET("", h.handleListTools)
	tools.GET("/:name/schema", h.handleSchema)
	tools.POST("/:name/run", h.handleRun)
	tools.POST("/:name/format", h.handleFormat)

	engine.POST("/finalizations/:id", h.handleFinalize)
	return engine
}

func (h *Host) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (h *Host) handleListTools(c *gin.Context) {
	list := h.executor.Registry().List()
	out := make([]toolSummary, 0, len(list))
	for _, t := range list {
		desc := t.Descriptor()
		owner, _ := h.plugins.Owner(desc.Name)
		out = append(out, toolSummary{Descriptor: desc, Plugin: owner})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

func (h *Host) handleSchema(c *gin.Context) {
	t, err := h.executor.Registry().Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s := t.InputSchema()
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"type": "object"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Host) handleRun(c *gin.Context) {
	name := c.Param("name")
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	input := map[string]any{}
	if len(req.Input) > 0 && string(req.Input) != "null" {
		parsed, err := tool.ParseArguments(string(req.Input))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input = parsed
	}
	dest := req.Destination
	if dest == "" {
		dest = format.Rich
	}

	out, err := h.executor.Run(c.Request.Context(), h.conv, h.editor, tool.Call{
		ID:       req.ID,
		Name:     name,
		Input:    input,
		Thinking: req.Thinking,
	})
	switch {
	case errors.Is(err, tool.ErrToolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case out == nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	renderer := format.NewRenderer()
	resp := runResponse{
		Invocation: out.Invocation,
		Use:        renderer.Entry(h.executor.FormatUse(name, input, dest), dest),
		DurationMS: out.CompletedAt.Sub(out.StartedAt).Milliseconds(),
	}
	status := http.StatusOK
	if err != nil {
		resp.IsError = true
		resp.Error = err.Error()
		if errors.Is(err, tool.ErrInvalidInput) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, resp)
		return
	}

	res := out.Result
	if res != nil {
		resp.Text = res.Content.Text()
		resp.Response = res.Response
		resp.Data = res.Content.Data
		resp.Pending = res.Finalization != nil
		for _, p := range res.Content.Parts {
			raw, err := message.MarshalPart(p)
			if err != nil {
				h.logger.Warn().Err(err).Str("tool", name).Msg("dropping unencodable part")
				continue
			}
			resp.Parts = append(resp.Parts, raw)
		}
		rendered := renderer.Entry(h.executor.FormatResult(name, res.Content, dest), dest)
		resp.Result = &rendered
	}
	c.JSON(status, resp)
}

func (h *Host) handleFormat(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.executor.Registry().Get(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	dest := req.Destination
	if dest == "" {
		dest = format.Console
	}
	entry := h.executor.FormatUse(name, req.Input, dest)
	c.JSON(http.StatusOK, format.NewRenderer().Entry(entry, dest))
}

func (h *Host) handleFinalize(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	err := h.executor.Resolve(c.Request.Context(), c.Param("id"), req.MessageID)
	switch {
	case errors.Is(err, tool.ErrFinalizationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *Host) handleUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conversation": h.conv.ID(),
		"tools":        h.conv.ToolUsage(),
		"tokens":       h.conv.TokenUsage(),
	})
}
