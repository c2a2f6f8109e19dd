package marshalling

import (
	"encoding/binary"

	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"

	"quantumvault/secretsharing"
	"quantumvault/tree"
)

// Envelope is what a guardian receives: the share of one node together with
// the path locating it in the tree. The value has the width of the field.
type Envelope struct {
	Path  []string
	Index uint32
	Value []byte
}

// Seal wraps the share of node in an envelope.
func Seal(node *tree.Node, f *secretsharing.Field) (*Envelope, error) {
	if node.IsRoot() {
		return nil, xerrors.Errorf("the root holds no share: %w", tree.ErrUnknownPath)
	}

	bs, err := MarshalShare(node.Share, f)
	if err != nil {
		return nil, xerrors.Errorf("failed to seal %q: %w", node.Path, err)
	}

	return &Envelope{
		Path:  append([]string{}, node.Path...),
		Index: node.Share.Index,
		Value: bs[Uint32Size:],
	}, nil
}

// Open returns the share and the path held by the envelope.
func (e *Envelope) Open(f *secretsharing.Field) (tree.Path, *secretsharing.Share, error) {
	if len(e.Path) == 0 {
		return nil, nil, xerrors.Errorf("envelope without path: %w", tree.ErrUnknownPath)
	}

	bs := make([]byte, Uint32Size, Uint32Size+len(e.Value))
	binary.BigEndian.PutUint32(bs, e.Index)
	share, err := UnmarshalShare(append(bs, e.Value...), f)
	if err != nil {
		return nil, nil, xerrors.Errorf("envelope %q: %w", tree.Path(e.Path), err)
	}

	return tree.Path(e.Path), share, nil
}

func MarshalEnvelope(e *Envelope) ([]byte, error) {
	bs, err := protobuf.Encode(e)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode envelope: %w", err)
	}
	return bs, nil
}

func UnmarshalEnvelope(bs []byte) (*Envelope, error) {
	e := &Envelope{}
	err := protobuf.Decode(bs, e)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode envelope: %w", err)
	}
	return e, nil
}

// Envelopes seals every node of t but the root, parents before children.
func Envelopes(t *tree.Tree, f *secretsharing.Field) ([]*Envelope, error) {
	envelopes := make([]*Envelope, 0, t.Len()-1)
	err := t.Walk(func(n *tree.Node) error {
		if n.IsRoot() {
			return nil
		}
		e, err := Seal(n, f)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envelopes, nil
}

// Holdings opens a set of envelopes into the form expected by
// Hierarchy.RecoverFrom.
func Holdings(envelopes []*Envelope, f *secretsharing.Field) (map[string]*secretsharing.Share, error) {
	holdings := make(map[string]*secretsharing.Share, len(envelopes))
	for _, e := range envelopes {
		path, share, err := e.Open(f)
		if err != nil {
			return nil, err
		}
		if _, ok := holdings[path.String()]; ok {
			return nil, xerrors.Errorf("two envelopes for %q: %w", path, secretsharing.ErrInconsistentShares)
		}
		holdings[path.String()] = share
	}
	return holdings, nil
}
