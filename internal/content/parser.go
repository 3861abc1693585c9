// Package content turns raw chapter markup into structured units. The
// orchestrator treats this as an opaque collaborator; it only sees
// success or failure.
package content

import (
	"fmt"
	"html"
	"strings"

	"github.com/maligree/corpus-import/pkg/runner"
)

// Parser converts raw unit content into a StructuredUnit. Stateless
// and safe for concurrent use.
type Parser struct{}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseUnit implements runner.Parser. Markup is stripped, entities are
// unescaped, and each non-empty line becomes one segment. A document
// with no textual content is a contract error for this unit.
func (p *Parser) ParseUnit(raw runner.RawContent, groupID string, unitIndex int, collectionID string) (*runner.StructuredUnit, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty content for %s/%s/%d", collectionID, groupID, unitIndex)
	}

	text := stripMarkup(string(raw))

	var segments []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			segments = append(segments, line)
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no textual content for %s/%s/%d", collectionID, groupID, unitIndex)
	}

	return &runner.StructuredUnit{
		CollectionID: collectionID,
		GroupID:      groupID,
		Index:        unitIndex,
		Title:        segments[0],
		Segments:     segments,
	}, nil
}

// stripMarkup removes tags and unescapes entities. Block-level closers
// become newlines so segment boundaries survive the strip.
func stripMarkup(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	var tag strings.Builder
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			if isBlockBoundary(tag.String()) {
				b.WriteRune('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return html.UnescapeString(b.String())
}

// isBlockBoundary reports whether a tag ends a block of text.
func isBlockBoundary(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case strings.HasPrefix(tag, "/p"), strings.HasPrefix(tag, "/div"),
		strings.HasPrefix(tag, "/h"), strings.HasPrefix(tag, "/li"),
		strings.HasPrefix(tag, "br"):
		return true
	default:
		return false
	}
}
