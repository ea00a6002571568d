package graph

import (
	"strings"
)

// ModulePath is a dotted Python module name such as "pkg.sub.mod". It is kept
// in its dotted form so that paths, locations and imports stay comparable and
// can be used as map keys. The zero value is the empty path ("no module").
type ModulePath string

const separator = "."

func NewModulePath(segments ...string) ModulePath {
	return ModulePath(strings.Join(segments, separator))
}

func ParseModulePath(dotted string) ModulePath {
	return ModulePath(strings.Trim(strings.TrimSpace(dotted), separator))
}

func (p ModulePath) String() string {
	return string(p)
}

func (p ModulePath) IsEmpty() bool {
	return p == ""
}

func (p ModulePath) Segments() []string {
	if p.IsEmpty() {
		return nil
	}
	return strings.Split(string(p), separator)
}

func (p ModulePath) Len() int {
	if p.IsEmpty() {
		return 0
	}
	return strings.Count(string(p), separator) + 1
}

// Top returns the first segment, which names the top-level package.
func (p ModulePath) Top() string {
	head, _, _ := strings.Cut(string(p), separator)
	return head
}

func (p ModulePath) Last() string {
	if i := strings.LastIndex(string(p), separator); i >= 0 {
		return string(p)[i+1:]
	}
	return string(p)
}

func (p ModulePath) Parent() ModulePath {
	if i := strings.LastIndex(string(p), separator); i >= 0 {
		return p[:i]
	}
	return ""
}

// Ancestor strips n trailing segments. It returns false when p has fewer
// than n segments.
func (p ModulePath) Ancestor(n int) (ModulePath, bool) {
	if n > p.Len() {
		return "", false
	}
	out := p
	for i := 0; i < n; i++ {
		out = out.Parent()
	}
	return out, true
}

func (p ModulePath) Child(name string) ModulePath {
	return p.Join(ModulePath(name))
}

func (p ModulePath) Join(other ModulePath) ModulePath {
	switch {
	case p.IsEmpty():
		return other
	case other.IsEmpty():
		return p
	}
	return p + separator + other
}

// HasPrefix reports whether prefix is a segment-wise prefix of p (or equal).
func (p ModulePath) HasPrefix(prefix ModulePath) bool {
	if prefix.IsEmpty() || p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+separator)
}

// IsSubpath reports whether big is a direct child of p: exactly one segment
// longer with p as prefix.
func (p ModulePath) IsSubpath(big ModulePath) bool {
	return big.Len() == p.Len()+1 && big.HasPrefix(p)
}

// Compare orders paths segment by segment.
func (p ModulePath) Compare(other ModulePath) int {
	a, b := p.Segments(), other.Segments()
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
