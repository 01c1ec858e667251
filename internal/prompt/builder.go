// Package prompt composes persona instructions and user input into a single
// completion prompt. Pure functions only; validation of blank input happens
// upstream in the turn orchestrator.
package prompt

import (
	"fmt"
	"strings"
)

// Build assembles the completion prompt from, in fixed order: the persona
// system instruction, an optional file-upload note, and the user utterance
// marker. Deterministic given its inputs.
func Build(personaPrefix, userText, fileNote string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(personaPrefix))

	if note := strings.TrimSpace(fileNote); note != "" {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("User uploaded file: %s", note))
	}

	b.WriteString("\nUser: ")
	b.WriteString(userText)
	b.WriteString("\nAssistant:")
	return b.String()
}

// FileNote synthesizes the text shown for a file-bearing turn in place of the
// raw bytes. fileName may be empty, in which case the URL stands in.
func FileNote(fileName, fileURL string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = strings.TrimSpace(fileURL)
	}
	return name
}
