package aider

import (
	"regexp"
	"strings"
)

// CSI and OSC escape sequences; aider colors its terminal output.
var (
	csiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	oscRe = regexp.MustCompile(`\x1b\][^\x07]*\x07`)
)

func stripANSI(s string) string {
	s = oscRe.ReplaceAllString(s, "")
	return csiRe.ReplaceAllString(s, "")
}

// isReadyMarker recognizes aider's startup banner or first prompt.
func isReadyMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "Aider v") || isPromptLine(trimmed)
}

func isPromptLine(trimmed string) bool {
	return trimmed == ">"
}

// isCompletionMarker recognizes the end of one command's output:
// prompt re-appearance, aider's token-usage line, or an applied-edit
// confirmation.
func isCompletionMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	if isPromptLine(trimmed) {
		return true
	}
	if strings.HasPrefix(trimmed, "Tokens:") {
		return true
	}
	return strings.HasPrefix(trimmed, "Applied edit to")
}

// cleanOutput strips ANSI sequences, prompt lines and echoes of the
// dispatched instruction from raw subprocess output.
func cleanOutput(raw, instruction string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		stripped := stripANSI(line)
		trimmed := strings.TrimSpace(stripped)
		if isPromptLine(trimmed) {
			continue
		}
		if trimmed == instruction || trimmed == "> "+instruction {
			continue
		}
		kept = append(kept, stripped)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
