package record

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ClaytonHunt/cascade/internal/frontmatter"
)

// dateLayout is the format of the persisted "updated" field.
const dateLayout = "2006-01-02"

// meta is the decoded shape of a record's frontmatter block.
type meta struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Kind     string `yaml:"kind"`
	Status   string `yaml:"status"`
	Priority string `yaml:"priority"`
	Project  string `yaml:"project"`
	Updated  string `yaml:"updated"`
}

// Parse turns raw file bytes into a Record. It is deterministic and
// side-effect-free; every failure is a *ParseError and means the item is
// excluded from the active set rather than crashed past.
func Parse(path string, data []byte) (*Record, error) {
	front, _, err := frontmatter.Split(data)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "frontmatter", Err: err}
	}

	var m meta
	if err := yaml.Unmarshal(front, &m); err != nil {
		return nil, &ParseError{Path: path, Reason: "yaml", Err: err}
	}

	id, ok := IDFromName(m.ID)
	if !ok {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("invalid id %q", m.ID)}
	}

	kind := Kind(m.Kind)
	if !kind.Valid() {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("invalid kind %q", m.Kind)}
	}
	if idKind, _, _ := ParseID(id); idKind != kind {
		return nil, &ParseError{Path: path,
			Reason: fmt.Sprintf("id %s does not match kind %s", id, kind)}
	}
	if nameKind, ok := KindForPath(path); ok && nameKind != kind {
		return nil, &ParseError{Path: path,
			Reason: fmt.Sprintf("filename %s does not match kind %s", filepath.Base(path), kind)}
	}

	if m.Title == "" {
		return nil, &ParseError{Path: path, Reason: "title is required"}
	}

	status := Status(m.Status)
	if !status.Valid() {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("invalid status %q", m.Status)}
	}

	priority := Priority(m.Priority)
	if m.Priority == "" {
		priority = PriorityMedium
	} else if !priority.Valid() {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("invalid priority %q", m.Priority)}
	}

	var updated time.Time
	if m.Updated != "" {
		updated, err = time.Parse(dateLayout, m.Updated)
		if err != nil {
			updated, err = time.Parse(time.RFC3339, m.Updated)
		}
		if err != nil {
			return nil, &ParseError{Path: path,
				Reason: fmt.Sprintf("invalid updated %q", m.Updated), Err: err}
		}
	}

	var projectRef string
	if m.Project != "" {
		ref, ok := IDFromName(m.Project)
		if !ok {
			return nil, &ParseError{Path: path,
				Reason: fmt.Sprintf("invalid project reference %q", m.Project)}
		}
		if kind != KindEpic {
			return nil, &ParseError{Path: path,
				Reason: fmt.Sprintf("project reference on %s (epics only)", kind)}
		}
		projectRef = ref
	}

	return &Record{
		ID:         id,
		Title:      m.Title,
		Kind:       kind,
		Status:     status,
		Priority:   priority,
		ProjectRef: projectRef,
		Path:       path,
		UpdatedAt:  updated,
	}, nil
}
