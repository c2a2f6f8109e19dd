package marshalling

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quantumvault/entropy"
	"quantumvault/secretsharing"
	"quantumvault/tree"
)

const rootSecret = "c4bbcb1fbec99d65bf59d85c8cb62ee242db963f0fe106f483d9afa73bd4e39a8a"

func buildTree(t *testing.T) (*tree.Hierarchy, *tree.Tree) {
	conf := tree.DefaultConfig()
	scheme, err := conf.Scheme(entropy.Deterministic([]byte(t.Name())), false)
	require.NoError(t, err)

	h, err := tree.NewHierarchy(conf, scheme)
	require.NoError(t, err)

	tr, err := h.Build(rootSecret)
	require.NoError(t, err)
	return h, tr
}

func TestEnvelope_MarshalRoundTrip(t *testing.T) {
	h, tr := buildTree(t)
	f := h.Scheme().Field()

	node, ok := tr.Node("East", "State 4", "District 2")
	require.True(t, ok)

	e, err := Seal(node, f)
	require.NoError(t, err)
	require.Equal(t, []string{"East", "State 4", "District 2"}, e.Path)
	require.Equal(t, uint32(2), e.Index)
	require.Len(t, e.Value, f.Width())

	bs, err := MarshalEnvelope(e)
	require.NoError(t, err)

	decoded, err := UnmarshalEnvelope(bs)
	require.NoError(t, err)
	require.Equal(t, e, decoded)

	path, share, err := decoded.Open(f)
	require.NoError(t, err)
	require.Equal(t, node.Path, path)
	require.True(t, node.Share.Equal(share))

	_, err = Seal(tr.Root(), f)
	require.ErrorIs(t, err, tree.ErrUnknownPath)
}

// TestEnvelope_RecoverFromEnvelopes hands every share out and rebuilds the
// root from what a subset of guardians sends back
func TestEnvelope_RecoverFromEnvelopes(t *testing.T) {
	h, tr := buildTree(t)
	f := h.Scheme().Field()

	envelopes, err := Envelopes(tr, f)
	require.NoError(t, err)
	require.Len(t, envelopes, tr.Len()-1)
	require.Equal(t, []string{"North"}, envelopes[0].Path)

	var returned []*Envelope
	for _, e := range envelopes {
		bs, err := MarshalEnvelope(e)
		require.NoError(t, err)

		// only District guardians of South, East and West answer
		if len(e.Path) != 3 || e.Path[0] == "North" {
			continue
		}
		decoded, err := UnmarshalEnvelope(bs)
		require.NoError(t, err)
		returned = append(returned, decoded)
	}
	require.Len(t, returned, 3*5*5)

	holdings, err := Holdings(returned, f)
	require.NoError(t, err)

	recovered, err := h.RecoverFrom(holdings)
	require.NoError(t, err)
	require.Equal(t, rootSecret, recovered)

	_, err = Holdings([]*Envelope{returned[0], returned[0]}, f)
	require.ErrorIs(t, err, secretsharing.ErrInconsistentShares)
}

func TestEnvelope_OpenRejects(t *testing.T) {
	f := secretsharing.DefaultField()
	value := make([]byte, f.Width())

	_, _, err := (&Envelope{Index: 1, Value: value}).Open(f)
	require.ErrorIs(t, err, tree.ErrUnknownPath)

	_, _, err = (&Envelope{Path: []string{"North"}, Index: 1, Value: value[1:]}).Open(f)
	require.ErrorIs(t, err, secretsharing.ErrInconsistentShares)

	_, _, err = (&Envelope{Path: []string{"North"}, Index: 0, Value: value}).Open(f)
	require.ErrorIs(t, err, secretsharing.ErrInconsistentShares)

	full := make([]byte, f.Width())
	for i := range full {
		full[i] = 0xff
	}
	_, _, err = (&Envelope{Path: []string{"North"}, Index: 1, Value: full}).Open(f)
	require.ErrorIs(t, err, secretsharing.ErrInconsistentShares)

	_, err = UnmarshalEnvelope([]byte{0xff, 0xff})
	require.Error(t, err)
}
