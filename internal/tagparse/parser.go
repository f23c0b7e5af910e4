// Package tagparse reconstructs structured tool invocations from free
// text that imitates a tagged call syntax. Backends without native
// tool calling are prompted to emit calls as tags; their output is
// not guaranteed to be well formed, so parsing is best-effort span
// extraction rather than grammar validation. The parser never fails:
// with nothing recognizable it degrades to a single text part.
package tagparse

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var (
	// Self-contained result blocks the model invented to simulate a
	// tool's output. Removed before call detection so a fabricated
	// result can never mask or merge with a real call.
	fabricatedResultRe = regexp.MustCompile(`(?s)<function_results>.*?</function_results>\n?`)

	// Grouping wrapper around one or more calls. Unwrapped (replaced
	// by its inner content) before scanning so the calls inside are
	// found by the same passes as bare calls.
	callWrapperRe = regexp.MustCompile(`(?s)<function_calls>(.*?)</function_calls>`)

	// Explicit call syntax: <invoke name="tool">...</invoke>.
	invokeRe = regexp.MustCompile(`(?s)<invoke\s+name="([^"]+)"\s*>(.*?)</invoke>`)

	// Named-parameter sub-syntax inside a call body.
	namedParamRe = regexp.MustCompile(`(?s)<parameter\s+name="([^"]+)"\s*>(.*?)</parameter>`)

	// Opening tag of a direct child parameter, e.g. <file_path>.
	childOpenRe = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9_-]*)\s*>`)
)

// candidate is an accepted call span. Accepted candidates never
// overlap: the explicit pass runs first and shorthand matches inside
// an already-accepted span are discarded.
type candidate struct {
	name       string
	paramBlock string
	start, end int
}

// paramAliases maps alternate parameter spellings to each tool's
// canonical argument name, so different phrasings of the same intent
// resolve to one argument.
var paramAliases = map[string]map[string]string{
	"read_file":  {"path": "file_path", "filepath": "file_path", "filename": "file_path"},
	"write_file": {"path": "file_path", "filepath": "file_path", "filename": "file_path"},
	"edit_file":  {"path": "file_path", "filepath": "file_path", "filename": "file_path"},
	"run_shell":  {"cmd": "command", "script": "command"},
}

// Part is one extracted segment: plain text, or a reconstructed
// invocation. Exactly one of the two is set.
type Part struct {
	Text       string
	Invocation *Invocation
}

// Invocation is a structured call reconstructed from tagged text.
type Invocation struct {
	Name string
	Args map[string]any
}

func textPart(text string) Part {
	return Part{Text: text}
}

func invocationPart(name string, args map[string]any) Part {
	return Part{Invocation: &Invocation{Name: name, Args: args}}
}

// StripFabricatedResults removes hallucinated tool-result blocks.
// Removal is idempotent.
func StripFabricatedResults(text string) string {
	return fabricatedResultRe.ReplaceAllString(text, "")
}

// Parse extracts an ordered part sequence from raw model text.
// toolNames lists the host's registered tools; the shorthand syntax
// (tool name as the outer tag) is only recognized for known tools,
// while the explicit <invoke> syntax is accepted for any name.
func Parse(text string, toolNames []string) []Part {
	cleaned := StripFabricatedResults(text)
	cleaned = callWrapperRe.ReplaceAllString(cleaned, "$1")

	var accepted []candidate
	for _, m := range invokeRe.FindAllStringSubmatchIndex(cleaned, -1) {
		accepted = append(accepted, candidate{
			name:       cleaned[m[2]:m[3]],
			paramBlock: cleaned[m[4]:m[5]],
			start:      m[0],
			end:        m[1],
		})
	}

	// Shorthand pass runs only after the explicit pass has fully
	// completed; the sort below restores left-to-right output order.
	for _, tool := range toolNames {
		re := shorthandPattern(tool)
		for _, m := range re.FindAllStringSubmatchIndex(cleaned, -1) {
			c := candidate{
				name:       tool,
				paramBlock: cleaned[m[2]:m[3]],
				start:      m[0],
				end:        m[1],
			}
			if !overlapsAny(accepted, c) {
				accepted = append(accepted, c)
			}
		}
	}

	if len(accepted) == 0 {
		return []Part{textPart(cleaned)}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })

	var parts []Part
	prevEnd := 0
	for _, c := range accepted {
		if between := cleaned[prevEnd:c.start]; strings.TrimSpace(between) != "" {
			parts = append(parts, textPart(between))
		}
		parts = append(parts, invocationPart(c.name, parseParams(c.name, c.paramBlock)))
		prevEnd = c.end
	}
	if trailing := cleaned[prevEnd:]; strings.TrimSpace(trailing) != "" {
		parts = append(parts, textPart(trailing))
	}
	return parts
}

func shorthandPattern(tool string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(tool)
	return regexp.MustCompile(`(?s)<` + quoted + `>(.*?)</` + quoted + `>`)
}

func overlapsAny(accepted []candidate, c candidate) bool {
	for _, a := range accepted {
		if c.start < a.end && a.start < c.end {
			return true
		}
	}
	return false
}

// parseParams extracts a call's arguments. Named-parameter tags take
// precedence; otherwise direct child tags one level deep are used.
func parseParams(tool, block string) map[string]any {
	args := map[string]any{}
	named := namedParamRe.FindAllStringSubmatch(block, -1)
	if len(named) > 0 {
		for _, m := range named {
			setArg(args, tool, m[1], m[2])
		}
		return args
	}
	for _, p := range childParams(block) {
		setArg(args, tool, p.name, p.value)
	}
	return args
}

type childParam struct {
	name  string
	value string
}

// childParams scans <name>value</name> pairs by index rather than a
// single pattern: the tag soup is model output, so an unclosed tag
// just ends the scan instead of failing it.
func childParams(block string) []childParam {
	var out []childParam
	rest := block
	for {
		loc := childOpenRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			return out
		}
		name := rest[loc[2]:loc[3]]
		closeTag := "</" + name + ">"
		body := rest[loc[1]:]
		ci := strings.Index(body, closeTag)
		if ci < 0 {
			rest = body
			continue
		}
		out = append(out, childParam{name: name, value: body[:ci]})
		rest = body[ci+len(closeTag):]
	}
}

func setArg(args map[string]any, tool, name, raw string) {
	if aliases, ok := paramAliases[tool]; ok {
		if canonical, ok := aliases[strings.ToLower(name)]; ok {
			name = canonical
		}
	}
	args[name] = decodeValue(raw)
}

// decodeValue JSON-decodes array/object-shaped values and keeps
// everything else as a literal string.
func decodeValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
