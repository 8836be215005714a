package llm

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/prismis/prismis/internal/apperr"
)

// UserContext holds the four canonical sections of context.md, consumed
// verbatim by the evaluator prompt.
type UserContext struct {
	HighPriority   []string
	MediumPriority []string
	LowPriority    []string
	NotInterested  []string
}

const (
	headingHigh   = "## High Priority Topics"
	headingMedium = "## Medium Priority Topics"
	headingLow    = "## Low Priority Topics"
	headingIgnore = "## Not Interested"
)

// LoadUserContext reads and parses context.md at path. No third-party
// Markdown-section parser fits this trivial four-heading/bullet-list
// format; a bufio.Scanner line walk is simpler and exercises nothing a
// library would meaningfully improve on - see DESIGN.md.
func LoadUserContext(path string) (*UserContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "open context.md", err)
	}
	defer f.Close()
	return ParseUserContext(f)
}

// ParseUserContext scans r for the four canonical headings and collects
// each one's bulleted lines.
func ParseUserContext(r io.Reader) (*UserContext, error) {
	uc := &UserContext{}
	var current *[]string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.EqualFold(line, headingHigh):
			current = &uc.HighPriority
		case strings.EqualFold(line, headingMedium):
			current = &uc.MediumPriority
		case strings.EqualFold(line, headingLow):
			current = &uc.LowPriority
		case strings.EqualFold(line, headingIgnore):
			current = &uc.NotInterested
		case strings.HasPrefix(line, "## "):
			current = nil // an unrecognized heading stops collection until the next known one
		case current != nil && (strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")):
			*current = append(*current, strings.TrimSpace(line[2:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "scan context.md", err)
	}
	return uc, nil
}

// Render reproduces the canonical section layout, which is what gets
// handed to the evaluator prompt as UserContext.
func (uc *UserContext) Render() string {
	var b strings.Builder
	writeSection(&b, headingHigh, uc.HighPriority)
	writeSection(&b, headingMedium, uc.MediumPriority)
	writeSection(&b, headingLow, uc.LowPriority)
	writeSection(&b, headingIgnore, uc.NotInterested)
	return b.String()
}

func writeSection(b *strings.Builder, heading string, items []string) {
	b.WriteString(heading)
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
