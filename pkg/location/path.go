// ABOUTME: Location paths identifying nodes in the shelf hierarchy
// ABOUTME: Validation, comparison and parsing of path segments

package location

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidPath indicates an empty path, an empty segment or a segment that
// is not valid UTF-8
var ErrInvalidPath = errors.New("location: invalid path")

// Separator joins segments in the textual form of a path
const Separator = "/"

// Path is the ordered list of segment names leading from the root to a node.
// Segments are opaque and case-sensitive.
type Path []string

// Validate checks that the path names at least one segment and every segment
// is non-empty UTF-8. Documents store segments as JSON keys, which cannot
// carry invalid bytes.
func (p Path) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidPath)
	}
	for i, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w: empty segment at position %d", ErrInvalidPath, i)
		}
		if !utf8.ValidString(seg) {
			return fmt.Errorf("%w: segment %q at position %d is not valid UTF-8", ErrInvalidPath, seg, i)
		}
	}
	return nil
}

// Equal reports whether both paths have the same segments in the same order
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share backing storage
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Child returns a new path extended by one segment
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Parent returns the path without its last segment.
// The parent of a single-segment path is the empty (root) path.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1].Clone()
}

// String renders the path for logs and listings
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// ParsePath splits a separator-joined path. Leading and trailing separators
// are ignored; an empty string yields the root path. Empty inner segments are
// kept so Validate rejects them.
func ParsePath(s string) Path {
	s = strings.Trim(s, Separator)
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, Separator))
}
