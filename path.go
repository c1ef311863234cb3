package statemachine

import (
	"strings"

	"github.com/enetx/g"
)

// Path is the location of a state in the state tree, one segment per nesting
// level. The zero value is the root path.
type Path []g.String

// ParsePath splits a dotted state name into a Path. Spaces are stripped and
// empty segments dropped, so "normal.on", " normal.on " and "normal..on" all
// parse to the same path.
func ParsePath(name g.String) Path {
	cleaned := strings.ReplaceAll(string(name), " ", "")
	if cleaned == "" {
		return nil
	}

	var path Path
	for part := range strings.SplitSeq(cleaned, ".") {
		if part != "" {
			path = append(path, g.String(part))
		}
	}

	return path
}

// String joins the path back into its dotted form.
func (p Path) String() g.String {
	parts := make([]string, len(p))
	for i, part := range p {
		parts[i] = string(part)
	}

	return g.String(strings.Join(parts, "."))
}

// Empty reports whether the path is the root path.
func (p Path) Empty() bool { return len(p) == 0 }

// Child returns a copy of the path extended with one segment.
func (p Path) Child(name g.String) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)

	return append(child, name)
}

// Join returns a copy of the path extended with all segments of tail.
func (p Path) Join(tail Path) Path {
	joined := make(Path, len(p), len(p)+len(tail))
	copy(joined, p)

	return append(joined, tail...)
}

// HasPrefix reports whether prefix is an ancestor of p or equal to it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}

	for i, part := range prefix {
		if p[i] != part {
			return false
		}
	}

	return true
}

// Tail strips prefix from the front of the path. It panics when prefix is not
// actually a prefix; callers check with HasPrefix first.
func (p Path) Tail(prefix Path) Path {
	if !p.HasPrefix(prefix) {
		panic("statemachine: path " + p.String() + " does not start with " + prefix.String())
	}

	return p[len(prefix):]
}

// Splice splits two paths into their shared prefix and the two distinct
// tails. When one path is a prefix of the other (or both are equal), the last
// shared segment is moved back into both tails, so that neither tail comes
// out empty for non-root paths.
func (p Path) Splice(other Path) (common, tail, otherTail Path) {
	n := 0
	for n < len(p) && n < len(other) && p[n] == other[n] {
		n++
	}

	if n > 0 && (n == len(p) || n == len(other)) {
		n--
	}

	return p[:n], p[n:], other[n:]
}
