// Package docrender renders Markdown CV drafts to .docx documents.
package docrender

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fumiama/go-docx"
)

// DocumentName is the fixed output file name; re-rendering overwrites it.
const DocumentName = "updated_cv.docx"

// Renderer implements the DocumentRenderer port with go-docx.
// Rendering is deterministic: the same Markdown always produces the same
// visible text content.
type Renderer struct{}

// New constructs a Renderer.
func New() *Renderer { return &Renderer{} }

type lineKind int

const (
	kindParagraph lineKind = iota
	kindHeading1
	kindHeading2
	kindHeading3
	kindBullet
	kindNumbered
)

type span struct {
	text   string
	bold   bool
	italic bool
}

type renderLine struct {
	kind  lineKind
	spans []span
}

var (
	numberedRe = regexp.MustCompile(`^\d+\.\s+`)
	inlineRe   = regexp.MustCompile(`(\*\*.*?\*\*|\*.*?\*)`)
)

// buildLines parses Markdown into the flat line model the writer emits.
// Kept pure so determinism is testable without reading .docx archives.
func buildLines(markdown string) []renderLine {
	var lines []renderLine
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "### "):
			lines = append(lines, renderLine{kind: kindHeading3, spans: []span{{text: line[4:], bold: true}}})
		case strings.HasPrefix(line, "## "):
			lines = append(lines, renderLine{kind: kindHeading2, spans: []span{{text: line[3:], bold: true}}})
		case strings.HasPrefix(line, "# "):
			lines = append(lines, renderLine{kind: kindHeading1, spans: []span{{text: line[2:], bold: true}}})
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			lines = append(lines, renderLine{kind: kindBullet, spans: parseSpans(line[2:])})
		case numberedRe.MatchString(line):
			lines = append(lines, renderLine{kind: kindNumbered, spans: parseSpans(numberedRe.ReplaceAllString(line, ""))})
		default:
			lines = append(lines, renderLine{kind: kindParagraph, spans: parseSpans(line)})
		}
	}
	return lines
}

// parseSpans splits a line into runs, honoring **bold** and *italic*.
func parseSpans(text string) []span {
	var spans []span
	rest := text
	for {
		loc := inlineRe.FindStringIndex(rest)
		if loc == nil {
			break
		}
		if loc[0] > 0 {
			spans = append(spans, span{text: rest[:loc[0]]})
		}
		token := rest[loc[0]:loc[1]]
		switch {
		case strings.HasPrefix(token, "**"):
			spans = append(spans, span{text: token[2 : len(token)-2], bold: true})
		default:
			spans = append(spans, span{text: token[1 : len(token)-1], italic: true})
		}
		rest = rest[loc[1]:]
	}
	if rest != "" {
		spans = append(spans, span{text: rest})
	}
	return spans
}

// visibleText flattens the line model to the text a reader would see.
func visibleText(lines []renderLine) string {
	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch ln.kind {
		case kindBullet:
			b.WriteString("• ")
		case kindNumbered:
			b.WriteString("1. ")
		}
		for _, sp := range ln.spans {
			b.WriteString(sp.text)
		}
	}
	return b.String()
}

// headingSize returns the run size in half-points for each line kind.
func headingSize(kind lineKind) string {
	switch kind {
	case kindHeading1:
		return "28"
	case kindHeading2:
		return "26"
	case kindHeading3:
		return "24"
	}
	return ""
}

// Render writes the Markdown draft as a .docx under outputDir and returns
// the file path.
func (r *Renderer) Render(markdown, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("op=docrender.Render mkdir: %w", err)
	}

	doc := docx.New().WithDefaultTheme()
	for _, ln := range buildLines(markdown) {
		p := doc.AddParagraph()
		// List styles are emitted as literal prefixes; ATS parsers and the
		// determinism contract only see text content.
		switch ln.kind {
		case kindBullet:
			p.AddText("• ")
		case kindNumbered:
			p.AddText("1. ")
		}
		for _, sp := range ln.spans {
			run := p.AddText(sp.text)
			if size := headingSize(ln.kind); size != "" {
				run.Size(size)
			}
			if sp.bold {
				run.Bold()
			}
			if sp.italic {
				run.Italic()
			}
		}
	}

	path := filepath.Join(outputDir, DocumentName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("op=docrender.Render create: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := doc.WriteTo(f); err != nil {
		return "", fmt.Errorf("op=docrender.Render write: %w", err)
	}
	return path, nil
}

// VisibleText returns the reader-visible text Render would produce for the
// given Markdown.
func VisibleText(markdown string) string {
	return visibleText(buildLines(markdown))
}
