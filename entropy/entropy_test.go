package entropy

import (
	"bytes"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSource_Secure checks which sources are fit for production
func TestSource_Secure(t *testing.T) {
	require.True(t, Crypto().Secure())
	require.True(t, Mixed(bytes.NewReader(make([]byte, 64))).Secure())
	require.False(t, Deterministic([]byte("seed")).Secure())

	require.Equal(t, "deterministic", Deterministic(nil).Name())
	require.Equal(t, "crypto/rand", Crypto().Name())
}

// TestSource_Deterministic ensures that two sources with the same seed give
// the same stream and different seeds do not
func TestSource_Deterministic(t *testing.T) {
	a := make([]byte, 64)
	b := make([]byte, 64)
	c := make([]byte, 64)

	Deterministic([]byte("seed")).XORKeyStream(a, a)
	Deterministic([]byte("seed")).XORKeyStream(b, b)
	Deterministic([]byte("other")).XORKeyStream(c, c)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

// TestSource_Crypto ensures two reads from the OS generator differ
func TestSource_Crypto(t *testing.T) {
	src := Crypto()
	a := make([]byte, 32)
	b := make([]byte, 32)
	src.XORKeyStream(a, a)
	src.XORKeyStream(b, b)

	require.NotEqual(t, a, b)
}

// TestSource_MixedIgnoresWeakReader checks that a constant external reader
// does not make the stream constant
func TestSource_MixedIgnoresWeakReader(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	Mixed(bytes.NewReader(make([]byte, 32))).XORKeyStream(a, a)
	Mixed(bytes.NewReader(make([]byte, 32))).XORKeyStream(b, b)

	require.NotEqual(t, a, b)
}

// TestSource_Int checks the range of Int
func TestSource_Int(t *testing.T) {
	src := Deterministic([]byte("range"))
	m := big.NewInt(13)

	for i := 0; i < 500; i++ {
		v := src.Int(m)
		require.True(t, v.Sign() >= 0)
		require.True(t, v.Cmp(m) < 0)
	}
}

// TestSource_ConcurrentUse reads a deterministic source from many goroutines
func TestSource_ConcurrentUse(t *testing.T) {
	src := Deterministic([]byte("concurrent"))
	m := new(big.Int).Lsh(big.NewInt(1), 200)

	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = src.Int(m)
			}
		}()
	}
	wg.Wait()
}
