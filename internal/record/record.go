// Package record defines the planning item model and the parser that turns
// markdown-with-frontmatter files into typed records.
package record

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind identifies the level of a planning item in the
// Project→Epic→Feature→{Story,Bug} chain.
type Kind string

const (
	KindProject Kind = "project"
	KindEpic    Kind = "epic"
	KindFeature Kind = "feature"
	KindStory   Kind = "story"
	KindBug     Kind = "bug"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProject, KindEpic, KindFeature, KindStory, KindBug:
		return true
	default:
		return false
	}
}

// ParentKind returns the kind expected one level up the chain, or "" for
// projects, which are parentless.
func (k Kind) ParentKind() Kind {
	switch k {
	case KindEpic:
		return KindProject
	case KindFeature:
		return KindEpic
	case KindStory, KindBug:
		return KindFeature
	default:
		return ""
	}
}

// Leaf reports whether k is a leaf kind (stories and bugs never own children
// and are the unit counted by progress aggregation).
func (k Kind) Leaf() bool {
	return k == KindStory || k == KindBug
}

// Status is the workflow state persisted in a record's frontmatter.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInPlanning Status = "in-planning"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInPlanning, StatusReady, StatusInProgress,
		StatusBlocked, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// Priority is the scheduling weight persisted in a record's frontmatter.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Record is one planning item backed by a single markdown file.
type Record struct {
	// ID is the stable item identifier, a kind letter plus a number ("S70").
	ID string

	// Title is the human-readable item title.
	Title string

	// Kind is the item's level in the hierarchy.
	Kind Kind

	// Status is the persisted workflow state.
	Status Status

	// Priority is the persisted scheduling weight.
	Priority Priority

	// ProjectRef is an optional explicit project cross-reference. Only epics
	// carry it; it overrides path-derived project attachment.
	ProjectRef string

	// Path is the absolute, OS-native path of the backing file.
	Path string

	// UpdatedAt mirrors the "updated" frontmatter field.
	UpdatedAt time.Time
}

// Key returns the normalized path used as the cache key everywhere.
func (r *Record) Key() string {
	return NormalizePath(r.Path)
}

// NormalizePath lowercases a path and converts separators to forward slashes
// so that OS-native casing and separators never produce distinct keys.
func NormalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(filepath.ToSlash(path), `\`, "/"))
}

// ParseError describes a file that could not be turned into a record. The
// item is excluded from the active set; nothing is fatal.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
