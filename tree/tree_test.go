package tree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"quantumvault/entropy"
	"quantumvault/secretsharing"
)

const rootSecret = "c4bbcb1fbec99d65bf59d85c8cb62ee242db963f0fe106f483d9afa73bd4e39a8a"

func newTestHierarchy(t *testing.T, conf Config) *Hierarchy {
	scheme, err := conf.Scheme(entropy.Deterministic([]byte(t.Name())), false)
	require.NoError(t, err)

	h, err := NewHierarchy(conf, scheme)
	require.NoError(t, err)
	return h
}

func buildDefault(t *testing.T) (*Hierarchy, *Tree) {
	h := newTestHierarchy(t, DefaultConfig())
	tree, err := h.Build(rootSecret)
	require.NoError(t, err)
	return h, tree
}

// TestTree_BuildShape checks the number of nodes and the labels of the
// default hierarchy
func TestTree_BuildShape(t *testing.T) {
	_, tree := buildDefault(t)

	require.Equal(t, 1+4+4*5+4*5*5, tree.Len())

	root := tree.Root()
	require.True(t, root.IsRoot())
	require.Nil(t, root.Share)
	require.Equal(t, rootSecret, root.Secret)

	cardinals := tree.Children()
	require.Len(t, cardinals, 4)
	for i, label := range []string{"North", "South", "East", "West"} {
		require.Equal(t, label, cardinals[i].Label())
		require.Equal(t, uint32(i+1), cardinals[i].Share.Index)
		require.Equal(t, 1, cardinals[i].Depth())
	}

	district, ok := tree.Node("West", "State 5", "District 5")
	require.True(t, ok)
	require.Equal(t, uint32(5), district.Share.Index)
	require.Equal(t, Path{"West", "State 5", "District 5"}, district.Path)
	require.Empty(t, tree.Children("West", "State 5", "District 5"))

	_, ok = tree.Node("North", "State 6")
	require.False(t, ok)
}

// TestTree_ChildSecretIsParentShare checks that every split takes the value
// of the parent share as its secret
func TestTree_ChildSecretIsParentShare(t *testing.T) {
	h, tree := buildDefault(t)
	f := h.Scheme().Field()

	err := tree.Walk(func(n *Node) error {
		if n.IsRoot() {
			return nil
		}
		require.Equal(t, f.EncodeSecret(n.Share.Value), n.Secret)
		require.Len(t, n.Secret, 2*f.Width())

		// the node can be rebuilt from any three of its children
		children := tree.Children(n.Path...)
		if len(children) == 0 {
			return nil
		}
		recovered, err := h.Scheme().Recover([]*secretsharing.Share{
			children[4].Share, children[0].Share, children[2].Share,
		})
		require.NoError(t, err)
		require.Equal(t, n.Secret, recovered)
		return nil
	})
	require.NoError(t, err)
}

// TestTree_WalkOrder checks that parents come before children and siblings
// follow their index
func TestTree_WalkOrder(t *testing.T) {
	_, tree := buildDefault(t)

	var paths []string
	err := tree.Walk(func(n *Node) error {
		paths = append(paths, n.Path.String())
		return nil
	})
	require.NoError(t, err)
	require.Len(t, paths, tree.Len())

	require.Equal(t, []string{"", "North", "South", "East", "West", "North/State 1"}, paths[:6])
	require.Equal(t, "North/State 1/District 1", paths[25])
	require.Equal(t, "West/State 5/District 5", paths[len(paths)-1])
}

// TestTree_Shares returns copies of the share set of a branch
func TestTree_Shares(t *testing.T) {
	_, tree := buildDefault(t)

	shares := tree.Shares("North")
	require.Len(t, shares, 5)

	node, _ := tree.Node("North", "State 3")
	require.True(t, node.Share.Equal(shares["State 3"]))

	shares["State 3"].Value.V.SetInt64(0)
	require.False(t, node.Share.Equal(shares["State 3"]))

	require.Empty(t, tree.Shares("North", "State 1", "District 1"))
}

// TestTree_IndependentSplits ensures two builds of the same secret produce
// different shares
func TestTree_IndependentSplits(t *testing.T) {
	h := newTestHierarchy(t, DefaultConfig())

	a, err := h.Build(rootSecret)
	require.NoError(t, err)
	b, err := h.Build(rootSecret)
	require.NoError(t, err)

	na, _ := a.Node("North")
	nb, _ := b.Node("North")
	require.False(t, na.Share.Equal(nb.Share))
}

// TestTree_BuildSingleWorker checks that the result does not depend on the
// amount of parallelism
func TestTree_BuildSingleWorker(t *testing.T) {
	conf := DefaultConfig()
	conf.Workers = 1
	h := newTestHierarchy(t, conf)

	tree, err := h.Build(rootSecret)
	require.NoError(t, err)
	require.Equal(t, 125, tree.Len())

	conf.Workers = 64
	h = newTestHierarchy(t, conf)
	tree, err = h.Build(rootSecret)
	require.NoError(t, err)
	require.Equal(t, 125, tree.Len())
}

// TestTree_BuildToyField builds a small tree in an 8-bit field
func TestTree_BuildToyField(t *testing.T) {
	conf := Config{
		Modulus: "251",
		Levels: []Level{
			{Name: "Cardinal", Labels: []string{"North", "South", "East", "West"}, Threshold: 3, Count: 4},
			{Name: "State", Threshold: 2, Count: 3},
		},
	}
	h := newTestHierarchy(t, conf)

	tree, err := h.Build("2a")
	require.NoError(t, err)
	require.Equal(t, 1+4+12, tree.Len())
	require.Equal(t, "2a", tree.Root().Secret)

	_, err = h.Build("fb")
	require.ErrorIs(t, err, secretsharing.ErrSecretTooLarge)
}

func TestTree_BuildRejectsSecret(t *testing.T) {
	h := newTestHierarchy(t, DefaultConfig())

	_, err := h.Build("not hex")
	require.ErrorIs(t, err, secretsharing.ErrMalformedSecret)

	_, err = h.Build("")
	require.ErrorIs(t, err, secretsharing.ErrMalformedSecret)
}

// TestTree_ConcurrentBuilds uses one hierarchy from several goroutines
func TestTree_ConcurrentBuilds(t *testing.T) {
	h := newTestHierarchy(t, DefaultConfig().WithDistricts(2, 3))

	wg := sync.WaitGroup{}
	trees := make([]*Tree, 8)
	errs := make([]error, 8)
	for i := range trees {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			trees[i], errs[i] = h.Build(rootSecret)
		}()
	}
	wg.Wait()

	for i := range trees {
		require.NoError(t, errs[i])
		require.Equal(t, 1+4+20+60, trees[i].Len())
	}
}

func TestHierarchy_NewRejects(t *testing.T) {
	scheme, err := secretsharing.NewScheme(secretsharing.Config{})
	require.NoError(t, err)

	_, err = NewHierarchy(Config{Modulus: "251", Levels: DefaultConfig().Levels}, scheme)
	require.Error(t, err)

	_, err = NewHierarchy(DefaultConfig().WithDistricts(0, 5), scheme)
	require.ErrorIs(t, err, secretsharing.ErrInvalidThreshold)
}

func TestHierarchy_Labels(t *testing.T) {
	h := newTestHierarchy(t, DefaultConfig())
	require.Equal(t, 3, h.Levels())

	label, err := h.Label(1, 2)
	require.NoError(t, err)
	require.Equal(t, "South", label)

	label, err = h.Label(3, 4)
	require.NoError(t, err)
	require.Equal(t, "District 4", label)

	_, err = h.Label(0, 1)
	require.ErrorIs(t, err, ErrUnknownPath)
	_, err = h.Label(4, 1)
	require.ErrorIs(t, err, ErrUnknownPath)
	_, err = h.Label(1, 5)
	require.ErrorIs(t, err, ErrUnknownPath)

	idx, err := h.LabelIndex(1, "West")
	require.NoError(t, err)
	require.Equal(t, uint32(4), idx)

	_, err = h.LabelIndex(1, "State 1")
	require.ErrorIs(t, err, ErrUnknownPath)
}

func TestPath(t *testing.T) {
	p := Path{"North", "State 2"}
	require.Equal(t, "North/State 2", p.String())
	require.Equal(t, p, ParsePath(p.String()))
	require.Equal(t, Path{}, ParsePath(""))
	require.Equal(t, "", Path{}.String())

	child := p.Child("District 1")
	require.Equal(t, 3, child.Depth())
	require.Equal(t, "District 1", child.Last())
	require.Equal(t, p, child.Parent())

	// Child does not alias the parent
	other := p.Child("District 2")
	require.Equal(t, "District 1", child.Last())
	require.Equal(t, "District 2", other.Last())

	require.Equal(t, "", Path{}.Last())
	require.Equal(t, Path{}, Path{}.Parent())
}
