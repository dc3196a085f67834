package workflow

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`(?i)\{\{(?:input|previous_output)\}\}`)

// FormatPrompt folds input into prompt. Every {{input}} or
// {{previous_output}} placeholder, in any letter case, is replaced with
// input verbatim. Without a placeholder, non-blank input is prepended inside
// a delimited block; blank input leaves the prompt untouched.
func FormatPrompt(prompt, input string) string {
	if placeholder.MatchString(prompt) {
		return placeholder.ReplaceAllLiteralString(prompt, input)
	}
	if strings.TrimSpace(input) == "" {
		return prompt
	}
	return "Previous output:\n---\n" + input + "\n---\n\nCurrent task:\n" + prompt
}
