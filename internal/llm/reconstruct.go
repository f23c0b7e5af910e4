package llm

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Wire-level stream events as decoded from the backend's SSE frames.
// The type discriminator is one of content_block_start,
// content_block_delta, content_block_stop and message_stop.
type wireEvent struct {
	Type         string     `json:"type"`
	Index        int64      `json:"index"`
	ContentBlock *wireBlock `json:"content_block,omitempty"`
	Delta        *wireDelta `json:"delta,omitempty"`
	Usage        *wireUsage `json:"usage,omitempty"`
}

type wireBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type wireDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// reconstructor turns a sequence of wire events into canonical
// fragments, each carrying at most one part. Its whole state is the
// small pending-invocation record, so cancelling a stream mid-way
// never leaves a partial invocation visible: an unterminated tool
// block at message_stop is dropped, not guessed at.
type reconstructor struct {
	pendingOpen bool
	pendingName string
	pendingArgs strings.Builder
}

// apply consumes one wire event and returns the fragment it determines,
// or nil when the event only updates pending state.
func (r *reconstructor) apply(ev wireEvent) *Response {
	switch ev.Type {
	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			r.pendingOpen = true
			r.pendingName = ev.ContentBlock.Name
			r.pendingArgs.Reset()
		}
		return nil

	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			if ev.Delta.Text == "" {
				return nil
			}
			return &Response{Parts: []Part{TextPart(ev.Delta.Text)}}
		case "input_json_delta":
			if r.pendingOpen {
				r.pendingArgs.WriteString(ev.Delta.PartialJSON)
			}
			return nil
		}
		return nil

	case "content_block_stop":
		if !r.pendingOpen {
			return nil
		}
		part := InvocationPart(r.pendingName, decodeInvocationArgs(r.pendingName, r.pendingArgs.String()))
		r.reset()
		return &Response{Parts: []Part{part}}

	case "message_stop":
		if r.pendingOpen {
			slog.Warn("dropping unterminated tool call at stream end", "tool", r.pendingName)
			r.reset()
		}
		fragment := &Response{FinishReason: FinishStop}
		if ev.Usage != nil {
			fragment.Usage = NewUsage(ev.Usage.InputTokens, ev.Usage.OutputTokens)
		}
		return fragment
	}
	return nil
}

func (r *reconstructor) reset() {
	r.pendingOpen = false
	r.pendingName = ""
	r.pendingArgs.Reset()
}

// decodeInvocationArgs decodes accumulated argument JSON. Malformed
// arguments degrade to an empty set rather than failing the stream.
func decodeInvocationArgs(tool, raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		slog.Warn("malformed tool arguments, substituting empty set", "tool", tool, "error", err)
		return map[string]any{}
	}
	if args == nil {
		args = map[string]any{}
	}
	return args
}
