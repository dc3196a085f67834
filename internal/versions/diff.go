package versions

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// NoDifferences is returned by Diff when both sides are identical.
const NoDifferences = "No differences found"

const (
	diffContext = 3
	devNull     = "/dev/null"
)

// Diff returns a unified diff of prompt id between revisions from and to.
// An empty revision stands for the working copy. A side where the prompt
// did not exist is diffed as empty content.
func (s *Store) Diff(ctx context.Context, id int64, from, to string) (string, error) {
	rel, abs, err := s.paths(id)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a, aok, err := s.contentAt(id, rel, abs, from)
	if err != nil {
		return "", err
	}
	b, bok, err := s.contentAt(id, rel, abs, to)
	if err != nil {
		return "", err
	}

	if a == b && aok == bok {
		return NoDifferences, nil
	}

	ud := difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: label("a/", rel, aok),
		FromDate: side(from),
		ToFile:   label("b/", rel, bok),
		ToDate:   side(to),
		Context:  diffContext,
	}

	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("%w: diff prompt %d: %w", ErrBackend, id, err)
	}
	if out == "" {
		return NoDifferences, nil
	}

	return out, nil
}

func label(prefix, rel string, exists bool) string {
	if !exists {
		return devNull
	}
	return prefix + rel
}

func side(revision string) string {
	if revision == "" {
		return "working copy"
	}
	return shorten(revision)
}

// splitLines splits s into newline-terminated lines without the phantom
// trailing line difflib.SplitLines produces for terminated input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	lines := strings.SplitAfter(s, "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		lines[last] += "\n"
	}
	return lines
}
