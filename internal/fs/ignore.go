package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-root ignore file read by LoadIgnoreMatcher.
const IgnoreFileName = ".pxignore"

// defaultIgnorePatterns are always applied regardless of config or .pxignore.
var defaultIgnorePatterns = []string{IgnoreFileName}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // match against the relative path instead of the basename
	negate    bool // "!pattern" re-includes what an earlier pattern ignored
}

// IgnoreMatcher checks resource paths against gitignore-style glob patterns.
// Patterns without '/' match the basename; patterns with '/' match the full
// path relative to the resource root. Later patterns override earlier ones,
// so "!keep.md" after "*.md" re-includes keep.md.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{}
		if strings.HasPrefix(raw, "!") {
			p.negate = true
			raw = raw[1:]
		}
		raw = strings.TrimPrefix(raw, "/")
		raw = strings.TrimSuffix(raw, "/")
		if raw == "" {
			continue
		}
		p.pattern = raw
		p.matchPath = strings.Contains(raw, "/")
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// LoadIgnoreMatcher combines the default patterns, the patterns from
// configuration and those in <root>/.pxignore, in that order.
func LoadIgnoreMatcher(root string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(defaultIgnorePatterns)+len(configured)+len(fromFile))
	all = append(all, defaultIgnorePatterns...)
	all = append(all, configured...)
	all = append(all, fromFile...)
	return NewIgnoreMatcher(all), nil
}

// Match reports whether the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	ignored := false
	for _, p := range m.patterns {
		target := basename
		if p.matchPath {
			target = normalized
		}
		matched, err := filepath.Match(p.pattern, target)
		if err != nil {
			// Bad pattern: skip rather than crash.
			continue
		}
		if matched {
			ignored = !p.negate
		}
	}
	return ignored
}

// Len returns the number of effective patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.patterns)
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
