package secretsharing

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"go.dedis.ch/kyber/v4/group/mod"
	"golang.org/x/xerrors"
)

// Share is one point (Index, Value) of a secret polynomial. It does not know
// which level or branch of a tree it belongs to.
type Share struct {
	Index uint32
	Value *mod.Int
}

// String returns the wire form "<index>-<hex value>", the value being padded
// to the width of its field.
func (s *Share) String() string {
	width := (s.Value.M.BitLen() + 7) / 8
	buf := make([]byte, width)
	s.Value.V.FillBytes(buf)
	return strconv.FormatUint(uint64(s.Index), 10) + "-" + hex.EncodeToString(buf)
}

// Clone returns a deep copy of the share.
func (s *Share) Clone() *Share {
	return &Share{
		Index: s.Index,
		Value: mod.NewInt(&s.Value.V, s.Value.M),
	}
}

// Equal returns true when both shares have the same index and value.
func (s *Share) Equal(other *Share) bool {
	if other == nil {
		return false
	}
	return s.Index == other.Index && s.Value.Equal(other.Value)
}

// ParseShare decodes the wire form produced by Share.String. The index has no
// leading zero and the value has exactly the width of the field. Anything that
// could not have come out of Split in this field is reported as
// ErrInconsistentShares. Hex digits may be uppercase.
func (f *Field) ParseShare(str string) (*Share, error) {
	idxPart, valPart, found := strings.Cut(str, "-")
	if !found {
		return nil, xerrors.Errorf("share %q has no index separator: %w", str, ErrInconsistentShares)
	}

	// ParseUint accepts neither signs nor whitespace. Formatting the index back
	// rejects leading zeros.
	idx, err := strconv.ParseUint(idxPart, 10, 32)
	if err != nil || strconv.FormatUint(idx, 10) != idxPart {
		return nil, xerrors.Errorf("share %q has a bad index: %w", str, ErrInconsistentShares)
	}
	if idx < 1 || idx > MaxIndex {
		return nil, xerrors.Errorf("share index %d outside [1, %d]: %w", idx, MaxIndex, ErrInconsistentShares)
	}

	if len(valPart) != 2*f.width {
		return nil, xerrors.Errorf("share %q has a value of the wrong size: %w", str, ErrInconsistentShares)
	}
	buf, err := hex.DecodeString(valPart)
	if err != nil {
		return nil, xerrors.Errorf("share %q has a non-hex value: %w", str, ErrInconsistentShares)
	}

	v := new(big.Int).SetBytes(buf)
	if v.Cmp(f.modulus) >= 0 {
		return nil, xerrors.Errorf("share %d value is not reduced: %w", idx, ErrInconsistentShares)
	}

	return &Share{
		Index: uint32(idx),
		Value: mod.NewInt(v, f.modulus),
	}, nil
}

// ParseShares decodes every string with ParseShare.
func (f *Field) ParseShares(strs []string) ([]*Share, error) {
	shares := make([]*Share, len(strs))
	for i, str := range strs {
		s, err := f.ParseShare(str)
		if err != nil {
			return nil, err
		}
		shares[i] = s
	}
	return shares, nil
}
