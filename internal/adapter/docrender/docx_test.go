package docrender_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/docrender"
)

const sampleDraft = `# Jordan Doe

## Summary
Backend engineer with **Go** and *Python* experience.

## Skills
- Go
- Python

## Experience
1. Software Engineer at PrevCo
2. Junior Developer at FirstCo`

func TestVisibleTextDeterministic(t *testing.T) {
	first := docrender.VisibleText(sampleDraft)
	second := docrender.VisibleText(sampleDraft)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestVisibleTextStructure(t *testing.T) {
	got := docrender.VisibleText(sampleDraft)
	want := "Jordan Doe\n" +
		"Summary\n" +
		"Backend engineer with Go and Python experience.\n" +
		"Skills\n" +
		"• Go\n" +
		"• Python\n" +
		"Experience\n" +
		"1. Software Engineer at PrevCo\n" +
		"1. Junior Developer at FirstCo"
	require.Equal(t, want, got)
}

func TestVisibleTextInlineFormatting(t *testing.T) {
	// Bold and italic markers are formatting, not content.
	got := docrender.VisibleText("**Bold** then *italic* then plain")
	require.Equal(t, "Bold then italic then plain", got)
}

func TestVisibleTextSkipsBlankLines(t *testing.T) {
	got := docrender.VisibleText("line one\n\n\nline two")
	require.Equal(t, "line one\nline two", got)
}

func TestRenderWritesDocumentToOutputDir(t *testing.T) {
	dir := t.TempDir()
	r := docrender.New()

	path, err := r.Render(sampleDraft, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, docrender.DocumentName), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestRenderOverwritesPreviousDocument(t *testing.T) {
	dir := t.TempDir()
	r := docrender.New()

	first, err := r.Render("# First", dir)
	require.NoError(t, err)
	second, err := r.Render("# Second with more content", dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
