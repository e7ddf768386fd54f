// Package textutil provides helpers for cleaning up free-form text returned
// by generative models before further parsing. Model responses are often
// wrapped in markdown code fences or padded with whitespace even when the
// prompt asks for plain text.
package textutil

import "strings"

// StripMarkdownFences removes ```text ... ``` or ``` ... ``` wrapping from text.
// Returns the content between the fences, or the original text if no fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	startIdx := 1 // skip the opening ``` line
	endIdx := len(lines) - 1

	// Find the closing ```
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// SplitCommaList splits text on commas, trims whitespace from each token, and
// discards empty tokens. The order of tokens is preserved.
func SplitCommaList(text string) []string {
	var out []string
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// Truncate returns the first n characters of s, appending "..." if truncated.
// Used to keep log events readable when attaching model output.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
