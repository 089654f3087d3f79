// Package frontmatter reads and rewrites the YAML frontmatter block at the
// top of a planning file.
//
// The block is line-oriented: it starts and ends with a "---" line, and the
// fields the engine cares about are single "key: value" lines. Rewrites are
// format-preserving exact-line substitutions, so a hand-edited or malformed
// block produces ErrNoMatch instead of a clobbered file. Full YAML decoding
// of the block is left to the record parser.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"
)

const delimiter = "---"

var (
	// ErrNoFrontmatter indicates the file does not begin with a "---" line.
	ErrNoFrontmatter = errors.New("no frontmatter block")

	// ErrUnterminated indicates the opening "---" has no closing delimiter.
	ErrUnterminated = errors.New("unterminated frontmatter block")

	// ErrNoMatch indicates the expected field line was not found in the block.
	ErrNoMatch = errors.New("no matching frontmatter line")
)

// Split separates the frontmatter block from the markdown body.
// The returned front excludes both delimiter lines; body starts on the line
// after the closing delimiter.
func Split(data []byte) (front, body []byte, err error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != delimiter {
		return nil, nil, ErrNoFrontmatter
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == delimiter {
			return []byte(strings.Join(lines[1:i], "\n")),
				[]byte(strings.Join(lines[i+1:], "\n")), nil
		}
	}

	return nil, nil, ErrUnterminated
}

// Field returns the raw value of the first "key: value" line inside the
// frontmatter block. The second return is false when the block or the field
// is missing.
func Field(data []byte, key string) (string, bool) {
	front, _, err := Split(data)
	if err != nil {
		return "", false
	}

	prefix := key + ":"
	for _, line := range strings.Split(string(front), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}

	return "", false
}

// Rewrite replaces the "key: oldValue" line inside the frontmatter block with
// "key: newValue", leaving every other byte of the file unchanged. The old
// value must match exactly; a miss returns ErrNoMatch so callers can skip the
// file rather than guess at its state.
func Rewrite(data []byte, key, oldValue, newValue string) ([]byte, error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != delimiter {
		return nil, ErrNoFrontmatter
	}

	target := key + ": " + oldValue
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimRight(lines[i], "\r")
		if trimmed == delimiter {
			break
		}
		if trimmed != target {
			continue
		}

		replacement := key + ": " + newValue
		if strings.HasSuffix(lines[i], "\r") {
			replacement += "\r"
		}
		lines[i] = replacement
		return []byte(strings.Join(lines, "\n")), nil
	}

	return nil, fmt.Errorf("rewrite %s: %w", key, ErrNoMatch)
}
