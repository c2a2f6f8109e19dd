// Package tree builds a hierarchy of threshold splits: the root secret is
// split into Cardinal shares, every Cardinal share is split again into State
// shares and so on. Losing or compromising a branch therefore compounds
// across levels.
//
// Nodes are stored in an arena indexed by their path and are never modified
// once created.
package tree

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"quantumvault/logging"
	"quantumvault/secretsharing"
	"quantumvault/tools"
)

// ErrUnknownPath is returned for paths that do not exist in the configured
// hierarchy.
var ErrUnknownPath = errors.New("unknown path")

// Hierarchy splits and recovers secrets following a Config.
type Hierarchy struct {
	conf   Config
	scheme *secretsharing.Scheme
	logger zerolog.Logger
}

// NewHierarchy validates the configuration and returns a hierarchy using
// scheme for every split. The scheme must work in the configured field.
func NewHierarchy(conf Config, scheme *secretsharing.Scheme) (*Hierarchy, error) {
	err := conf.Validate()
	if err != nil {
		return nil, xerrors.Errorf("invalid config: %w", err)
	}

	f, _ := conf.Field()
	if f.Modulus().Cmp(scheme.Field().Modulus()) != 0 {
		return nil, xerrors.New("scheme field does not match the configured modulus")
	}

	return &Hierarchy{
		conf:   conf,
		scheme: scheme,
		logger: logging.GetLogger("tree"),
	}, nil
}

// Config returns the configuration of the hierarchy.
func (h *Hierarchy) Config() Config {
	return h.conf
}

// Scheme returns the underlying secret sharing scheme.
func (h *Hierarchy) Scheme() *secretsharing.Scheme {
	return h.scheme
}

// Levels returns the number of splits below the root.
func (h *Hierarchy) Levels() int {
	return len(h.conf.Levels)
}

// Label returns the label of the share with the given index at depth
// (1 for Cardinals).
func (h *Hierarchy) Label(depth int, index int) (string, error) {
	if depth < 1 || depth > len(h.conf.Levels) {
		return "", xerrors.Errorf("depth %d: %w", depth, ErrUnknownPath)
	}
	level := h.conf.Levels[depth-1]
	if index < 1 || index > level.Count {
		return "", xerrors.Errorf("index %d at depth %d: %w", index, depth, ErrUnknownPath)
	}
	return level.Label(index), nil
}

// LabelIndex returns the share index of label at depth.
func (h *Hierarchy) LabelIndex(depth int, label string) (uint32, error) {
	if depth < 1 || depth > len(h.conf.Levels) {
		return 0, xerrors.Errorf("depth %d: %w", depth, ErrUnknownPath)
	}
	idx, ok := h.conf.Levels[depth-1].IndexOf(label)
	if !ok {
		return 0, xerrors.Errorf("label %q at depth %d: %w", label, depth, ErrUnknownPath)
	}
	return idx, nil
}

// checkPath makes sure every label of path exists at its depth and returns
// the share indices along the path.
func (h *Hierarchy) checkPath(path Path) ([]uint32, error) {
	if len(path) > len(h.conf.Levels) {
		return nil, xerrors.Errorf("path %q is deeper than the tree: %w", path, ErrUnknownPath)
	}

	indices := make([]uint32, len(path))
	for d, label := range path {
		idx, err := h.LabelIndex(d+1, label)
		if err != nil {
			return nil, err
		}
		indices[d] = idx
	}
	return indices, nil
}

// Node is a vertex of the tree. The root carries the secret and no share,
// any other node carries the share handed to its guardian.
type Node struct {
	Path  Path
	Share *secretsharing.Share
	// Secret is the value of the node as fed to the split of its children:
	// the root secret or the share value, at the field width.
	Secret string

	order []uint32
}

// Depth returns 0 for the root, 1 for Cardinals and so on.
func (n *Node) Depth() int {
	return len(n.Path)
}

// Label returns the last label of the path.
func (n *Node) Label() string {
	return n.Path.Last()
}

// IsRoot returns true for the root node.
func (n *Node) IsRoot() bool {
	return len(n.Path) == 0
}

// Build splits root level by level. A level is complete before the next one
// starts since every child split takes its parent's share value as secret.
func (h *Hierarchy) Build(root string) (*Tree, error) {
	f := h.scheme.Field()

	v, err := f.DecodeSecret(root)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode root secret: %w", err)
	}

	arena := tools.NewConcurrentMap[string, *Node]()
	rootNode := &Node{Path: Path{}, Secret: f.EncodeSecret(v)}
	arena.Set(rootNode.Path.String(), rootNode)

	current := []*Node{rootNode}
	for depth, level := range h.conf.Levels {
		current, err = h.splitLevel(depth+1, level, current, arena)
		if err != nil {
			return nil, xerrors.Errorf("failed to split level %s: %w", level.Name, err)
		}

		h.logger.Debug().
			Str("level", level.Name).
			Int("nodes", len(current)).
			Int("threshold", level.Threshold).
			Msg("level split")
	}

	return &Tree{conf: h.conf, nodes: arena}, nil
}

// splitLevel splits every parent in parallel. Parents are queued by position
// and workers write the children of parent i in slot i, which keeps the
// output in index order.
func (h *Hierarchy) splitLevel(depth int, level Level, parents []*Node,
	arena *tools.ConcurrentMap[string, *Node]) ([]*Node, error) {

	queue := tools.NewConcurrentQueue[int](len(parents))
	for i := range parents {
		err := queue.Push(i)
		if err != nil {
			return nil, err
		}
	}

	results := make([][]*Node, len(parents))
	var firstErr error
	var once sync.Once

	nbWorkers := min(h.conf.workers(), queue.Len())
	wg := sync.WaitGroup{}
	for w := 0; w < nbWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, err := queue.Pop()
				if err != nil {
					return
				}

				children, err := h.splitNode(depth, level, parents[i], arena)
				if err != nil {
					once.Do(func() { firstErr = err })
					return
				}
				results[i] = children
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	nodes := make([]*Node, 0, len(parents)*level.Count)
	for _, children := range results {
		nodes = append(nodes, children...)
	}
	return nodes, nil
}

func (h *Hierarchy) splitNode(depth int, level Level, parent *Node,
	arena *tools.ConcurrentMap[string, *Node]) ([]*Node, error) {

	f := h.scheme.Field()

	shares, err := h.scheme.Split(parent.Secret, level.Threshold, level.Count)
	if err != nil {
		return nil, xerrors.Errorf("failed to split %q: %w", parent.Path, err)
	}

	children := make([]*Node, len(shares))
	for j, share := range shares {
		order := make([]uint32, depth)
		copy(order, parent.order)
		order[depth-1] = share.Index

		child := &Node{
			Path:   parent.Path.Child(level.Label(int(share.Index))),
			Share:  share,
			Secret: f.EncodeSecret(share.Value),
			order:  order,
		}

		if !arena.SetIfAbsent(child.Path.String(), child) {
			return nil, xerrors.Errorf("node %q already exists", child.Path)
		}
		children[j] = child
	}
	return children, nil
}

// Tree is the result of Build. It is read-only.
type Tree struct {
	conf  Config
	nodes *tools.ConcurrentMap[string, *Node]
}

// Root returns the root node holding the secret.
func (t *Tree) Root() *Node {
	n, _ := t.nodes.Get("")
	return n
}

// Node returns the node at the given path.
func (t *Tree) Node(path ...string) (*Node, bool) {
	return t.nodes.Get(Path(path).String())
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	return t.nodes.Len()
}

// Children returns the children of the node at path in index order. Leaves
// and unknown paths have none.
func (t *Tree) Children(path ...string) []*Node {
	p := Path(path)
	if len(p) >= len(t.conf.Levels) {
		return nil
	}

	level := t.conf.Levels[len(p)]
	children := make([]*Node, 0, level.Count)
	for i := 1; i <= level.Count; i++ {
		child, ok := t.nodes.Get(p.Child(level.Label(i)).String())
		if ok {
			children = append(children, child)
		}
	}
	return children
}

// Shares returns copies of the shares produced by splitting the node at
// path, keyed by label. This is the share set of that branch.
func (t *Tree) Shares(path ...string) map[string]*secretsharing.Share {
	children := t.Children(path...)
	shares := make(map[string]*secretsharing.Share, len(children))
	for _, child := range children {
		shares[child.Label()] = child.Share.Clone()
	}
	return shares
}

// Walk calls fn on every node, parents before children and siblings in index
// order. It stops at the first error.
func (t *Tree) Walk(fn func(*Node) error) error {
	keys := t.nodes.SortedKeys(func(a, b string) bool {
		na, _ := t.nodes.Get(a)
		nb, _ := t.nodes.Get(b)
		return lessOrder(na.order, nb.order)
	})

	for _, key := range keys {
		n, _ := t.nodes.Get(key)
		err := fn(n)
		if err != nil {
			return err
		}
	}
	return nil
}

func lessOrder(a, b []uint32) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
