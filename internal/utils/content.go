package utils

import (
	"regexp"
	"strings"

	"google.golang.org/genai"
)

func ExtractContentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

var newlineRuns = regexp.MustCompile(`[\r\n]+`)

// NormalizeReply collapses runs of line breaks into one newline and drops
// trailing whitespace.
func NormalizeReply(text string) string {
	text = newlineRuns.ReplaceAllString(text, "\n")
	return strings.TrimRight(text, " \t\r\n")
}

// DisplayDelta prepares a streamed chunk for terminal output: line break runs
// become a single newline.
func DisplayDelta(chunk string) string {
	return newlineRuns.ReplaceAllString(chunk, "\n")
}
