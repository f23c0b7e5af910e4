package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/termbridge/termbridge/internal/tagparse"
)

const (
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
	defaultTemp      = 0.7
)

// httpClientTimeout is the default timeout for HTTP requests.
const httpClientTimeout = 10 * time.Minute

// defaultHTTPClient is a shared HTTP client with a generous timeout.
var defaultHTTPClient = &http.Client{Timeout: httpClientTimeout}

// ClaudeProvider implements Provider against the Anthropic messages
// wire contract over raw HTTP. One attempt per call: transport
// failures surface immediately and are never retried here.
type ClaudeProvider struct {
	baseURL string
	token   string
	model   string
	client  *http.Client
}

// NewClaudeProvider creates a Claude adapter for the given endpoint.
func NewClaudeProvider(baseURL, token, model string) *ClaudeProvider {
	return &ClaudeProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		model:   model,
		client:  defaultHTTPClient,
	}
}

func (p *ClaudeProvider) Name() string {
	return fmt.Sprintf("Claude (%s)", p.model)
}

// Wire request/response structures for the messages endpoint.

type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream,omitempty"`
	Tools       []claudeTool    `json:"tools,omitempty"`
	System      string          `json:"system,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeTool struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	InputSchema claudeSchema `json:"input_schema"`
}

type claudeSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

type claudeResponse struct {
	Content    []claudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Usage      *wireUsage           `json:"usage,omitempty"`
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

func (p *ClaudeProvider) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.token)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	return p.client.Do(httpReq)
}

func (p *ClaudeProvider) buildRequest(req Request, stream bool) ([]byte, error) {
	system, messages := buildClaudeMessages(req.Messages)
	wire := claudeRequest{
		Model:       chooseModel(req.Model, p.model),
		Messages:    messages,
		MaxTokens:   maxTokens(req.MaxTokens, defaultMaxTokens),
		Temperature: temperature(req.Temperature),
		Stream:      stream,
		Tools:       buildClaudeTools(req.Tools),
		System:      system,
	}
	return json.Marshal(wire)
}

// Generate performs one synchronous call. Parts come from the
// backend's structured tool-use blocks when present; otherwise the
// raw text is routed through the tag parser.
func (p *ClaudeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := p.buildRequest(req, false)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.post(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Status: resp.StatusCode, Body: string(raw)}
	}

	var wire claudeResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &Response{FinishReason: mapStopReason(wire.StopReason)}
	if wire.Usage != nil {
		out.Usage = NewUsage(wire.Usage.InputTokens, wire.Usage.OutputTokens)
	}

	if hasToolUse(wire.Content) {
		for _, block := range wire.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					out.Parts = append(out.Parts, TextPart(block.Text))
				}
			case "tool_use":
				out.Parts = append(out.Parts, InvocationPart(block.Name, decodeInvocationArgs(block.Name, string(block.Input))))
			}
		}
		return out, nil
	}

	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out.Parts = convertTagParts(tagparse.Parse(text.String(), toolNames(req.Tools)))
	return out, nil
}

// GenerateStream opens a streaming call. Every SSE frame passes
// through the reconstructor; the returned stream is consumer-paced.
func (p *ClaudeProvider) GenerateStream(ctx context.Context, req Request) (Stream, error) {
	body, err := p.buildRequest(req, true)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return newFragmentStream(ctx, func(ctx context.Context, fragments chan<- *Response) error {
		resp, err := p.post(ctx, body)
		if err != nil {
			return fmt.Errorf("claude request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return &TransportError{Status: resp.StatusCode, Body: string(raw)}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var recon reconstructor
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var ev wireEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			fragment := recon.apply(ev)
			if fragment == nil {
				continue
			}
			if !sendFragment(ctx, fragments, fragment) {
				return ctx.Err()
			}
			if ev.Type == "message_stop" {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("claude streaming error: %w", err)
		}
		return nil
	}), nil
}

// EstimateTokens is a best-effort heuristic; the backend has no
// counting endpoint.
func (p *ClaudeProvider) EstimateTokens(text string) int {
	return EstimateTokens(text)
}

// Embed always fails: the backend has no embedding endpoint.
func (p *ClaudeProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("claude: %w", ErrEmbeddingUnsupported)
}

// buildClaudeMessages serializes canonical history into wire messages.
// System parts collect into the request's system field; assistant
// invocation parts round-trip as the tag syntax the backend was
// prompted to emit.
func buildClaudeMessages(messages []Message) (string, []claudeMessage) {
	var systemParts []string
	var out []claudeMessage

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, collectTextParts(msg.Parts))
		case RoleUser:
			if text := collectTextParts(msg.Parts); text != "" {
				out = append(out, claudeMessage{Role: "user", Content: text})
			}
		case RoleAssistant:
			if text := renderAssistantParts(msg.Parts); text != "" {
				out = append(out, claudeMessage{Role: "assistant", Content: text})
			}
		}
	}

	return strings.Join(systemParts, "\n\n"), out
}

func renderAssistantParts(parts []Part) string {
	var b strings.Builder
	for _, part := range parts {
		switch part.Type {
		case PartText:
			b.WriteString(part.Text)
		case PartInvocation:
			if part.Invocation != nil {
				b.WriteString(renderInvocationTag(part.Invocation))
			}
		}
	}
	return b.String()
}

func renderInvocationTag(inv *Invocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<invoke name=%q>", inv.Name)
	keys := make([]string, 0, len(inv.Args))
	for k := range inv.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "<parameter name=%q>%s</parameter>", k, renderArgValue(inv.Args[k]))
	}
	b.WriteString("</invoke>")
	return b.String()
}

func renderArgValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// buildClaudeTools maps host tool declarations onto the backend's
// tool-schema shape, carrying {properties, required} across directly.
func buildClaudeTools(specs []ToolSpec) []claudeTool {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]claudeTool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, claudeTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: claudeSchema{
				Type:       "object",
				Properties: schemaProperties(spec.Schema),
				Required:   schemaRequired(spec.Schema),
			},
		})
	}
	return tools
}

func schemaProperties(schema map[string]any) map[string]any {
	if props, ok := schema["properties"].(map[string]any); ok {
		return props
	}
	return map[string]any{}
}

func schemaRequired(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func convertTagParts(parsed []tagparse.Part) []Part {
	parts := make([]Part, 0, len(parsed))
	for _, p := range parsed {
		if p.Invocation != nil {
			parts = append(parts, InvocationPart(p.Invocation.Name, p.Invocation.Args))
			continue
		}
		parts = append(parts, TextPart(p.Text))
	}
	return parts
}

func hasToolUse(blocks []claudeContentBlock) bool {
	for _, block := range blocks {
		if block.Type == "tool_use" {
			return true
		}
	}
	return false
}

func toolNames(specs []ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}

func mapStopReason(reason string) FinishReason {
	switch reason {
	case "":
		return FinishUnset
	case "end_turn", "stop_sequence":
		return FinishStop
	default:
		return FinishOther
	}
}

func chooseModel(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}

func maxTokens(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

func temperature(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return defaultTemp
}
