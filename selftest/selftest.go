// Package selftest splits a secret through a hierarchy and checks that the
// recovery paths an operator relies on actually work before shares are
// handed out.
package selftest

import (
	"errors"

	"golang.org/x/xerrors"

	"quantumvault/logging"
	"quantumvault/secretsharing"
	"quantumvault/tree"
)

var logger = logging.GetLogger("selftest")

// Check is the outcome of one scenario. Err is nil when it passed.
type Check struct {
	Name string
	Err  error
}

// Report lists the checks run against a tree.
type Report struct {
	Nodes  int
	Checks []Check
}

// Passed returns true when every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if c.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// Run builds the tree of secret and runs every scenario on it. An error is
// only returned when the tree cannot be built, failed scenarios are listed
// in the report.
func Run(h *tree.Hierarchy, secret string) (*Report, error) {
	t, err := h.Build(secret)
	if err != nil {
		return nil, xerrors.Errorf("failed to build tree: %w", err)
	}

	r := &runner{h: h, t: t, secret: t.Root().Secret}
	report := &Report{Nodes: t.Len()}

	scenarios := []struct {
		name string
		fn   func() error
	}{
		{"root from a threshold of Cardinals", r.rootFromThreshold},
		{"root below threshold", r.rootBelowThreshold},
		{"branch from its children", r.branchFromChildren},
		{"deepest branch from leaves", r.deepestBranch},
		{"chained recovery", r.chained},
	}

	for _, s := range scenarios {
		err := s.fn()
		report.Checks = append(report.Checks, Check{Name: s.name, Err: err})

		if err != nil {
			logger.Warn().Err(err).Str("check", s.name).Msg("check failed")
		} else {
			logger.Info().Str("check", s.name).Msg("check passed")
		}
	}

	return report, nil
}

type runner struct {
	h      *tree.Hierarchy
	t      *tree.Tree
	secret string
}

var errMismatch = errors.New("recovered value does not match")

// pick returns shares of the children of path, skipping the first child
// when there are enough of them so that the withheld branch is not needed.
func (r *runner) pick(path tree.Path, k int) []*secretsharing.Share {
	children := r.t.Children(path...)
	if len(children) > k {
		children = children[1:]
	}
	if k > len(children) {
		k = len(children)
	}

	shares := make([]*secretsharing.Share, k)
	for i := range shares {
		shares[i] = children[i].Share.Clone()
	}
	return shares
}

func (r *runner) threshold(depth int) int {
	return r.h.Config().Levels[depth].Threshold
}

func (r *runner) rootFromThreshold() error {
	recovered, err := r.h.RecoverRoot(r.pick(tree.Path{}, r.threshold(0)))
	if err != nil {
		return err
	}
	if recovered != r.secret {
		return xerrors.Errorf("root: %w", errMismatch)
	}
	return nil
}

func (r *runner) rootBelowThreshold() error {
	t := r.threshold(0)
	if t == 1 {
		// a single share always suffices
		return nil
	}

	_, err := r.h.RecoverRoot(r.pick(tree.Path{}, t-1))
	if !errors.Is(err, secretsharing.ErrInsufficientShares) {
		return xerrors.Errorf("expected insufficient shares, got %v", err)
	}
	return nil
}

// firstBranch returns the path of the first node at depth.
func (r *runner) firstBranch(depth int) tree.Path {
	path := tree.Path{}
	for d := 1; d <= depth; d++ {
		path = path.Child(r.h.Config().Levels[d-1].Label(1))
	}
	return path
}

func (r *runner) checkBranch(path tree.Path) (*secretsharing.Share, error) {
	share, err := r.h.RecoverBranch(path, r.pick(path, r.threshold(len(path))))
	if err != nil {
		return nil, err
	}

	node, ok := r.t.Node(path...)
	if !ok {
		return nil, xerrors.Errorf("%q: %w", path, tree.ErrUnknownPath)
	}
	if !node.Share.Equal(share) {
		return nil, xerrors.Errorf("%q: %w", path, errMismatch)
	}
	return share, nil
}

func (r *runner) branchFromChildren() error {
	if r.h.Levels() < 2 {
		return nil
	}
	_, err := r.checkBranch(r.firstBranch(1))
	return err
}

func (r *runner) deepestBranch() error {
	if r.h.Levels() < 2 {
		return nil
	}
	_, err := r.checkBranch(r.firstBranch(r.h.Levels() - 1))
	return err
}

// chained rebuilds the first Cardinal from below and uses it with the other
// Cardinals to rebuild the root.
func (r *runner) chained() error {
	if r.h.Levels() < 2 {
		return nil
	}

	first, err := r.checkBranch(r.firstBranch(1))
	if err != nil {
		return err
	}

	t := r.threshold(0)
	cardinals := r.t.Children()
	shares := []*secretsharing.Share{first}
	for _, c := range cardinals[1:] {
		if len(shares) == t {
			break
		}
		shares = append(shares, c.Share.Clone())
	}

	recovered, err := r.h.RecoverRoot(shares)
	if err != nil {
		return err
	}
	if recovered != r.secret {
		return xerrors.Errorf("chained root: %w", errMismatch)
	}
	return nil
}
