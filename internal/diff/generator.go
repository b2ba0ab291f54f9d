package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxDiffInput = 10 * 1024 * 1024

// Generator renders unified diffs for permission prompts.
type Generator struct {
	colorEnabled bool
}

// NewGenerator creates a diff generator. With colorEnabled the output
// carries ANSI escapes for terminal display.
func NewGenerator(colorEnabled bool) *Generator {
	return &Generator{colorEnabled: colorEnabled}
}

// Result contains the generated diff and its statistics.
type Result struct {
	UnifiedDiff  string
	AddedLines   int
	DeletedLines int
	IsBinary     bool
}

// GenerateUnified creates a line-based unified diff between old and
// new content. Identical inputs produce an empty diff.
func (g *Generator) GenerateUnified(oldContent, newContent, filename string) Result {
	if oldContent == newContent {
		return Result{}
	}
	if isBinary(oldContent) || isBinary(newContent) {
		return Result{
			UnifiedDiff: fmt.Sprintf("Binary file %s has changed", filename),
			IsBinary:    true,
		}
	}
	if len(oldContent) > maxDiffInput || len(newContent) > maxDiffInput {
		return Result{
			UnifiedDiff: fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ file too large, diff skipped @@", filename, filename),
		}
	}

	dmp := diffmatchpatch.New()
	// Line mode keeps hunks readable for multi-line edits.
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var body strings.Builder
	added, deleted := 0, 0
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				body.WriteString(g.colorize("+"+line, color.FgGreen))
				added++
			case diffmatchpatch.DiffDelete:
				body.WriteString(g.colorize("-"+line, color.FgRed))
				deleted++
			default:
				body.WriteString(" " + line)
			}
			body.WriteString("\n")
		}
	}

	var out strings.Builder
	out.WriteString(g.colorize("--- a/"+filename, color.FgRed) + "\n")
	out.WriteString(g.colorize("+++ b/"+filename, color.FgGreen) + "\n")
	hunk := fmt.Sprintf("@@ -1,%d +1,%d @@", lineCount(oldContent), lineCount(newContent))
	out.WriteString(g.colorize(hunk, color.FgCyan) + "\n")
	out.WriteString(body.String())

	return Result{
		UnifiedDiff:  out.String(),
		AddedLines:   added,
		DeletedLines: deleted,
	}
}

// Summary returns a one-line description like "+3 -1 lines".
func (r Result) Summary() string {
	if r.IsBinary {
		return "binary change"
	}
	return fmt.Sprintf("+%d -%d lines", r.AddedLines, r.DeletedLines)
}

func (g *Generator) colorize(s string, attrs ...color.Attribute) string {
	if !g.colorEnabled {
		return s
	}
	return color.New(attrs...).Sprint(s)
}

func splitLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" && text != "" {
		return []string{""}
	}
	return strings.Split(trimmed, "\n")
}

func lineCount(content string) int {
	if content == "" {
		return 0
	}
	return len(splitLines(content))
}

func isBinary(content string) bool {
	return strings.ContainsRune(content, '\x00')
}
