package tree

import "strings"

// PathSeparator joins the labels of a path in its string form.
const PathSeparator = "/"

// Path locates a node by the labels from the root, e.g. {"North", "State 2"}.
// The empty path is the root.
type Path []string

// ParsePath is the inverse of Path.String.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return strings.Split(s, PathSeparator)
}

func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Child returns a new path extended with label.
func (p Path) Child(label string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, label)
}

// Parent returns the path of the parent node. The root is its own parent.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Depth is the number of labels in the path, 0 for the root.
func (p Path) Depth() int {
	return len(p)
}

// Last returns the label of the node, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}
