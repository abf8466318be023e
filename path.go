package swamp

import (
	"fmt"
	"strings"
)

// Separator delimits the segments of a Path.
const Separator = "/"

// Path addresses a node from the root of an Exchange.
//
// Paths are compared by their exact text. Nothing is normalized: leading or
// trailing separators and empty segments are kept as given.
type Path struct {
	path string
}

// NewPath wraps s as a Path.
func NewPath(s string) Path {
	return Path{path: s}
}

// Root returns the empty path.
func Root() Path {
	return Path{}
}

func (p Path) String() string {
	return p.path
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return p.path == ""
}

// Split returns the segments of p, empty ones included. The root path splits
// into a single empty segment.
func (p Path) Split() []string {
	return strings.Split(p.path, Separator)
}

// Name returns the text after the final separator, or the whole path when it
// has none.
func (p Path) Name() string {
	i := strings.LastIndex(p.path, Separator)
	if i < 0 {
		return p.path
	}
	return p.path[i+len(Separator):]
}

// Parent returns the text before the final separator. A path without a
// separator is a child of the root, and the root is its own parent.
func (p Path) Parent() Path {
	i := strings.LastIndex(p.path, Separator)
	if i < 0 {
		return Root()
	}
	return Path{path: p.path[:i]}
}

// Depth is the number of Parent steps from p to the root.
func (p Path) Depth() int {
	if p.IsRoot() {
		return 0
	}
	depth := strings.Count(p.path, Separator)
	if !strings.HasPrefix(p.path, Separator) {
		depth++
	}
	return depth
}

// Join appends name as a new trailing segment.
func (p Path) Join(name string) Path {
	return Path{path: p.path + Separator + name}
}

// Validate applies the strict path policy: a non-root path starts with the
// separator, and has no empty segment and no trailing separator.
func (p Path) Validate() error {
	if p.IsRoot() {
		return nil
	}
	if !strings.HasPrefix(p.path, Separator) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, p.path)
	}
	for i, segment := range p.Split()[1:] {
		if segment == "" {
			return fmt.Errorf("%w: %q has an empty segment at %d", ErrInvalidPath, p.path, i+1)
		}
	}
	return nil
}
