package record

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// idPattern matches an item ID: one kind letter and a number.
var idPattern = regexp.MustCompile(`^([PEFSBpefsb])([0-9]+)$`)

// ParseID splits an item ID into its kind and numeric ordinal.
func ParseID(id string) (Kind, int, bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}

	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}

	var kind Kind
	switch strings.ToUpper(m[1]) {
	case "P":
		kind = KindProject
	case "E":
		kind = KindEpic
	case "F":
		kind = KindFeature
	case "S":
		kind = KindStory
	case "B":
		kind = KindBug
	}

	return kind, n, true
}

// IDFromName extracts the leading item ID from a file or directory base name.
// Names follow the "{ID}-{slug}" convention; the slug and a ".md" suffix are
// optional ("F20-login.md" -> "F20", "P1" -> "P1"). The returned ID is
// canonical uppercase.
func IDFromName(name string) (string, bool) {
	name = strings.TrimSuffix(name, ".md")
	if i := strings.IndexByte(name, '-'); i >= 0 {
		name = name[:i]
	}

	if _, _, ok := ParseID(name); !ok {
		return "", false
	}
	return strings.ToUpper(name), true
}

// KindForPath classifies a file purely by the kind letter of its leading ID.
func KindForPath(path string) (Kind, bool) {
	id, ok := IDFromName(filepath.Base(path))
	if !ok {
		return "", false
	}
	kind, _, _ := ParseID(id)
	return kind, true
}

// DeriveParent derives the ID of the record's expected parent from its file
// path: the closest ancestor directory whose name carries an ID of the parent
// kind. The output is untrusted input to the hierarchy builder: a miss means
// the record becomes an orphan, never an error.
func DeriveParent(path string, kind Kind) (string, bool) {
	parentKind := kind.ParentKind()
	if parentKind == "" {
		return "", false
	}

	dir := filepath.Dir(path)
	for {
		if id, ok := IDFromName(filepath.Base(dir)); ok {
			if k, _, _ := ParseID(id); k == parentKind {
				return id, true
			}
		}

		next := filepath.Dir(dir)
		if next == dir {
			return "", false
		}
		dir = next
	}
}
