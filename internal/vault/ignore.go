package vault

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is the per-vault ignore file, read from the vault
// root. It uses gitignore pattern syntax.
const IgnoreFileName = ".vaultignore"

// IgnoreMatcher matches vault-relative paths against ignore patterns.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	regex    *regexp.Regexp
	negation bool // starts with !
	dirOnly  bool // ends with /
	anchored bool // contains / before the last element
}

// NewIgnoreMatcher creates an empty matcher that ignores nothing.
func NewIgnoreMatcher() *IgnoreMatcher {
	return &IgnoreMatcher{}
}

// LoadIgnoreFile reads the vault's ignore file. A missing file yields
// an empty matcher.
func LoadIgnoreFile(vaultRoot string) (*IgnoreMatcher, error) {
	m := NewIgnoreMatcher()

	f, err := os.Open(filepath.Join(vaultRoot, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	return m, nil
}

// AddPattern adds one gitignore-style pattern. Empty lines and
// comments are skipped.
func (m *IgnoreMatcher) AddPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	var r ignoreRule
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = strings.TrimPrefix(pattern, "!")
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	// A slash inside the pattern anchors it to the vault root,
	// "drafts/old" means "/drafts/old" rather than "**/drafts/old".
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") {
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + ignorePatternRegex(pattern) + "$")
	m.rules = append(m.rules, r)
}

// Empty reports whether the matcher has no patterns.
func (m *IgnoreMatcher) Empty() bool {
	return len(m.rules) == 0
}

// Match reports whether a slash-separated vault-relative path is
// ignored. Later patterns win, so negations can re-include paths.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, r := range m.rules {
		if matchIgnoreRule(relPath, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

func matchIgnoreRule(relPath string, isDir bool, r ignoreRule) bool {
	parts := strings.Split(relPath, "/")

	if r.anchored {
		if r.regex.MatchString(relPath) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		// An anchored directory pattern covers everything beneath it.
		if r.dirOnly {
			for i := range parts[:len(parts)-1] {
				if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	// Unanchored patterns match the basename, the full path, or any
	// single path element.
	if r.regex.MatchString(parts[len(parts)-1]) || r.regex.MatchString(relPath) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// ignorePatternRegex converts a gitignore pattern to a regex string.
func ignorePatternRegex(pattern string) string {
	var sb strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				sb.WriteString("(?:.*/)?")
				i += 3
				continue
			}
			if strings.HasPrefix(pattern[i:], "**") && (i == 0 || pattern[i-1] == '/') {
				sb.WriteString(".*")
				i += 2
				continue
			}
			sb.WriteString("[^/]*")
			i++
		case '?':
			sb.WriteString("[^/]")
			i++
		case '[':
			j := strings.IndexByte(pattern[i:], ']')
			if j > 0 {
				sb.WriteString(pattern[i : i+j+1])
				i += j + 1
			} else {
				sb.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '\\':
			if i+1 < len(pattern) {
				sb.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				sb.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return sb.String()
}
