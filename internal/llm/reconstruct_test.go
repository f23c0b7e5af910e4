package llm

import (
	"testing"
)

func textDelta(text string) wireEvent {
	return wireEvent{Type: "content_block_delta", Delta: &wireDelta{Type: "text_delta", Text: text}}
}

func toolStart(name string) wireEvent {
	return wireEvent{Type: "content_block_start", ContentBlock: &wireBlock{Type: "tool_use", Name: name}}
}

func jsonDelta(fragment string) wireEvent {
	return wireEvent{Type: "content_block_delta", Delta: &wireDelta{Type: "input_json_delta", PartialJSON: fragment}}
}

func blockStop() wireEvent {
	return wireEvent{Type: "content_block_stop"}
}

func messageStop(usage *wireUsage) wireEvent {
	return wireEvent{Type: "message_stop", Usage: usage}
}

// drive feeds events through one reconstructor and collects fragments.
func drive(events ...wireEvent) []*Response {
	var r reconstructor
	var out []*Response
	for _, ev := range events {
		if frag := r.apply(ev); frag != nil {
			out = append(out, frag)
		}
	}
	return out
}

func TestReconstructTextDeltas(t *testing.T) {
	frags := drive(textDelta("Hello "), textDelta("world"), messageStop(nil))
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(frags))
	}
	if frags[0].Text() != "Hello " || frags[1].Text() != "world" {
		t.Errorf("text fragments wrong: %q %q", frags[0].Text(), frags[1].Text())
	}
	if frags[2].FinishReason != FinishStop {
		t.Errorf("final fragment finish = %q", frags[2].FinishReason)
	}
}

func TestReconstructToolCall(t *testing.T) {
	frags := drive(
		toolStart("grep"),
		jsonDelta(`{"patt`),
		jsonDelta(`ern": "x"}`),
		blockStop(),
		messageStop(nil),
	)
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	invs := frags[0].Invocations()
	if len(invs) != 1 || invs[0].Name != "grep" {
		t.Fatalf("invocation = %+v", invs)
	}
	if invs[0].Args["pattern"] != "x" {
		t.Errorf("args = %v", invs[0].Args)
	}
}

func TestReconstructEachFragmentAtMostOnePart(t *testing.T) {
	frags := drive(
		textDelta("a"),
		toolStart("f"),
		jsonDelta(`{}`),
		blockStop(),
		textDelta("b"),
		messageStop(nil),
	)
	for i, f := range frags {
		if len(f.Parts) > 1 {
			t.Errorf("fragment %d carries %d parts", i, len(f.Parts))
		}
	}
}

func TestReconstructUnterminatedCallDropped(t *testing.T) {
	frags := drive(
		toolStart("f"),
		jsonDelta(`{"a": 1`),
		messageStop(nil),
	)
	for _, f := range frags {
		if len(f.Invocations()) > 0 {
			t.Fatal("unterminated call must not surface")
		}
	}
	last := frags[len(frags)-1]
	if last.FinishReason != FinishStop {
		t.Errorf("finish = %q", last.FinishReason)
	}
}

func TestReconstructMalformedArgsEmptySet(t *testing.T) {
	frags := drive(
		toolStart("f"),
		jsonDelta(`{"broken": `),
		blockStop(),
	)
	if len(frags) != 1 {
		t.Fatalf("got %d fragments", len(frags))
	}
	invs := frags[0].Invocations()
	if len(invs) != 1 {
		t.Fatal("invocation missing")
	}
	if len(invs[0].Args) != 0 {
		t.Errorf("malformed args should decode to empty set, got %v", invs[0].Args)
	}
}

func TestReconstructEmptyArgs(t *testing.T) {
	frags := drive(toolStart("f"), blockStop())
	invs := frags[0].Invocations()
	if invs[0].Args == nil || len(invs[0].Args) != 0 {
		t.Errorf("args = %v", invs[0].Args)
	}
}

func TestReconstructUsageOnlyAtMessageStop(t *testing.T) {
	frags := drive(
		textDelta("hi"),
		messageStop(&wireUsage{InputTokens: 10, OutputTokens: 4}),
	)
	if frags[0].Usage != nil {
		t.Error("text fragment should carry no usage")
	}
	u := frags[1].Usage
	if u == nil {
		t.Fatal("final fragment missing usage")
	}
	if u.InputTokens != 10 || u.OutputTokens != 4 || u.TotalTokens != 14 {
		t.Errorf("usage = %+v", u)
	}
}

func TestReconstructEmptyTextDeltaSkipped(t *testing.T) {
	frags := drive(textDelta(""))
	if len(frags) != 0 {
		t.Errorf("empty delta should yield no fragment, got %d", len(frags))
	}
}
