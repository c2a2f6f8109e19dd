package tree

import (
	"errors"

	"go.dedis.ch/kyber/v4/group/mod"
	"golang.org/x/xerrors"

	"quantumvault/secretsharing"
)

// RecoverRoot rebuilds the root secret from Cardinal shares.
//
// Unlike Scheme.Recover, the configured threshold of the level is known here,
// so too few shares are reported as ErrInsufficientShares instead of
// producing a wrong secret.
func (h *Hierarchy) RecoverRoot(shares []*secretsharing.Share) (string, error) {
	v, err := h.recoverLevel(h.conf.Levels[0], shares)
	if err != nil {
		return "", xerrors.Errorf("failed to recover root: %w", err)
	}

	h.logger.Debug().Int("shares", len(shares)).Msg("root recovered")

	return h.scheme.Field().EncodeSecret(v), nil
}

// RecoverBranch rebuilds the share held at path from the shares of its
// children. The index of the result is the one implied by the last label of
// the path, so it can be fed to the recovery of the level above.
func (h *Hierarchy) RecoverBranch(path Path, shares []*secretsharing.Share) (*secretsharing.Share, error) {
	if len(path) == 0 {
		return nil, xerrors.Errorf("the root is recovered with RecoverRoot: %w", ErrUnknownPath)
	}

	indices, err := h.checkPath(path)
	if err != nil {
		return nil, err
	}
	if len(path) == len(h.conf.Levels) {
		return nil, xerrors.Errorf("%q is a leaf: %w", path, ErrUnknownPath)
	}

	v, err := h.recoverLevel(h.conf.Levels[len(path)], shares)
	if err != nil {
		return nil, xerrors.Errorf("failed to recover %q: %w", path, err)
	}

	h.logger.Debug().
		Str("branch", path.String()).
		Int("shares", len(shares)).
		Msg("branch recovered")

	return &secretsharing.Share{
		Index: indices[len(indices)-1],
		Value: v,
	}, nil
}

// recoverLevel interpolates shares produced by a split of the given level.
func (h *Hierarchy) recoverLevel(level Level, shares []*secretsharing.Share) (*mod.Int, error) {
	if len(shares) < level.Threshold {
		return nil, xerrors.Errorf("level %s needs %d shares, got %d: %w",
			level.Name, level.Threshold, len(shares), secretsharing.ErrInsufficientShares)
	}

	err := h.scheme.Verify(shares)
	if err != nil {
		return nil, err
	}

	for _, share := range shares {
		if int(share.Index) > level.Count {
			return nil, xerrors.Errorf("level %s has no share %d: %w",
				level.Name, share.Index, secretsharing.ErrInconsistentShares)
		}
	}

	// With a threshold of one every share is the parent value itself.
	if level.Threshold == 1 && len(shares) == 1 {
		return mod.NewInt(&shares[0].Value.V, shares[0].Value.M), nil
	}

	return h.scheme.RecoverScalar(shares)
}

// RecoverFrom rebuilds the root secret from shares held anywhere in the tree,
// keyed by the string form of their path. A branch whose share is not held is
// rebuilt from its children, recursively, as long as enough of them are
// available.
func (h *Hierarchy) RecoverFrom(holdings map[string]*secretsharing.Share) (string, error) {
	for key, share := range holdings {
		path := ParsePath(key)
		if len(path) == 0 {
			return "", xerrors.Errorf("the root holds no share: %w", ErrUnknownPath)
		}

		indices, err := h.checkPath(path)
		if err != nil {
			return "", err
		}
		if share == nil || share.Index != indices[len(indices)-1] {
			return "", xerrors.Errorf("share held at %q does not match its label: %w",
				key, secretsharing.ErrInconsistentShares)
		}
	}

	v, err := h.valueAt(Path{}, holdings)
	if err != nil {
		return "", err
	}

	return h.scheme.Field().EncodeSecret(v), nil
}

func (h *Hierarchy) valueAt(path Path, holdings map[string]*secretsharing.Share) (*mod.Int, error) {
	if len(path) > 0 {
		if share, ok := holdings[path.String()]; ok {
			return share.Value, nil
		}
	}

	if len(path) == len(h.conf.Levels) {
		return nil, xerrors.Errorf("no share held for %q: %w", path, secretsharing.ErrInsufficientShares)
	}

	level := h.conf.Levels[len(path)]
	shares := make([]*secretsharing.Share, 0, level.Threshold)

	for i := 1; i <= level.Count && len(shares) < level.Threshold; i++ {
		v, err := h.valueAt(path.Child(level.Label(i)), holdings)
		if errors.Is(err, secretsharing.ErrInsufficientShares) {
			continue
		}
		if err != nil {
			return nil, err
		}

		shares = append(shares, &secretsharing.Share{Index: uint32(i), Value: v})
	}

	v, err := h.recoverLevel(level, shares)
	if err != nil {
		return nil, xerrors.Errorf("failed to recover %q: %w", path, err)
	}
	return v, nil
}
