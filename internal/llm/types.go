package llm

import "context"

// PartType identifies a canonical response part.
type PartType string

const (
	PartText       PartType = "text"
	PartInvocation PartType = "invocation"
)

// Part is one element of a canonical response. Ordering is meaningful:
// text that precedes a call in the source precedes it here.
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	Invocation *Invocation `json:"invocation,omitempty"`
}

// Invocation is a structured request to run a named capability,
// either taken from a backend's native tool-use blocks or
// reconstructed from tagged text.
type Invocation struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// InvocationPart builds an invocation part.
func InvocationPart(name string, args map[string]any) Part {
	if args == nil {
		args = map[string]any{}
	}
	return Part{Type: PartInvocation, Invocation: &Invocation{Name: name, Args: args}}
}

// FinishReason describes why generation stopped.
type FinishReason string

const (
	FinishUnset FinishReason = ""
	FinishStop  FinishReason = "stop"
	FinishOther FinishReason = "other"
)

// Usage captures token accounting when the backend reports it.
// TotalTokens is always InputTokens + OutputTokens.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// NewUsage builds a Usage with the total derived from its parts.
func NewUsage(input, output int) *Usage {
	return &Usage{InputTokens: input, OutputTokens: output, TotalTokens: input + output}
}

// Response is the backend-agnostic representation of one model turn.
// Nothing downstream may branch on which backend produced it.
type Response struct {
	Parts        []Part       `json:"parts"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
}

// Text concatenates the response's text parts.
func (r *Response) Text() string {
	var out string
	for _, part := range r.Parts {
		if part.Type == PartText {
			out += part.Text
		}
	}
	return out
}

// Invocations returns the response's invocation parts in order.
func (r *Response) Invocations() []*Invocation {
	var out []*Invocation
	for _, part := range r.Parts {
		if part.Type == PartInvocation && part.Invocation != nil {
			out = append(out, part.Invocation)
		}
	}
	return out
}

// Role identifies a message role in canonical history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message holds a role with ordered canonical parts.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func SystemText(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart(text)}}
}

// ToolSpec describes a callable tool as declared by the host.
// Schema is a JSON-schema-like shape with "properties" and "required".
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Request represents a single model turn.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolSpec
	MaxTokens   int
	Temperature float32
}

// Stream yields canonical response fragments until io.EOF.
// Each fragment carries at most one part; the consumer drives pacing.
type Stream interface {
	Recv() (*Response, error)
	Close() error
}

// Provider is the per-backend translation boundary between wire
// format and canonical form.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	GenerateStream(ctx context.Context, req Request) (Stream, error)
	EstimateTokens(text string) int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EstimateTokens is the shared best-effort token heuristic for
// backends without a native counting endpoint.
func EstimateTokens(text string) int {
	return len(text) / 4
}

func collectTextParts(parts []Part) string {
	var out string
	for _, part := range parts {
		if part.Type == PartText {
			out += part.Text
		}
	}
	return out
}
