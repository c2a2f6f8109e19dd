package marshalling

import (
	"encoding/binary"

	"go.dedis.ch/kyber/v4/group/mod"
	"golang.org/x/xerrors"

	"quantumvault/secretsharing"
)

var Uint32Size = 4

// MarshalShare encodes share as a big-endian index followed by the value on
// the width of the field.
func MarshalShare(share *secretsharing.Share, f *secretsharing.Field) ([]byte, error) {
	if share == nil || !f.Contains(share.Value) {
		return nil, xerrors.Errorf("share is not an element of the field: %w",
			secretsharing.ErrInconsistentShares)
	}

	bs := make([]byte, Uint32Size+f.Width())
	binary.BigEndian.PutUint32(bs[:Uint32Size], share.Index)
	share.Value.V.FillBytes(bs[Uint32Size:])
	return bs, nil
}

// UnmarshalShare is the inverse of MarshalShare. Bytes that could not have
// been produced by a split in f are rejected.
func UnmarshalShare(bs []byte, f *secretsharing.Field) (*secretsharing.Share, error) {
	if len(bs) != Uint32Size+f.Width() {
		return nil, xerrors.Errorf("share is %d bytes, expected %d: %w",
			len(bs), Uint32Size+f.Width(), secretsharing.ErrInconsistentShares)
	}

	idx := binary.BigEndian.Uint32(bs[:Uint32Size])
	if idx < 1 || idx > secretsharing.MaxIndex {
		return nil, xerrors.Errorf("share index %d: %w", idx, secretsharing.ErrInconsistentShares)
	}

	value, err := decodeValue(bs[Uint32Size:], f)
	if err != nil {
		return nil, err
	}

	return &secretsharing.Share{
		Index: idx,
		Value: value,
	}, nil
}

func decodeValue(bs []byte, f *secretsharing.Field) (*mod.Int, error) {
	v := mod.NewInt64(0, f.Modulus())
	v.V.SetBytes(bs)
	if !f.Contains(v) {
		return nil, xerrors.Errorf("share value is not reduced: %w", secretsharing.ErrInconsistentShares)
	}
	return v, nil
}
