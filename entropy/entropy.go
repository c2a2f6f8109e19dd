// Package entropy provides the random sources consumed when splitting a
// secret and when drawing a fresh root secret.
package entropy

import (
	"crypto/cipher"
	"crypto/rand"
	"io"
	"math/big"
	"sync"

	"go.dedis.ch/kyber/v4/util/random"
	"go.dedis.ch/kyber/v4/xof/blake2xb"
)

// Source is a cipher.Stream that can be shared between goroutines. It also
// remembers whether the underlying generator is fit for production.
type Source struct {
	name   string
	secure bool

	sync.Mutex
	stream cipher.Stream
}

// Crypto returns a source reading from the operating system CSPRNG.
func Crypto() *Source {
	return &Source{
		name:   "crypto/rand",
		secure: true,
		stream: random.New(),
	}
}

// Mixed returns a source combining r with the operating system CSPRNG. It is
// used to fold external entropy, such as bytes fetched from a hardware or
// remote quantum generator, into the stream without trusting it alone.
func Mixed(r io.Reader) *Source {
	return &Source{
		name:   "mixed",
		secure: true,
		stream: random.New(r, rand.Reader),
	}
}

// Deterministic returns a reproducible source seeded with seed. It must only
// be used in tests: a scheme configured for production refuses it.
func Deterministic(seed []byte) *Source {
	return &Source{
		name:   "deterministic",
		secure: false,
		stream: blake2xb.New(seed),
	}
}

// Name returns a short description of the generator.
func (s *Source) Name() string {
	return s.name
}

// Secure returns true when the source is a cryptographic generator.
func (s *Source) Secure() bool {
	return s.secure
}

// XORKeyStream implements cipher.Stream.
func (s *Source) XORKeyStream(dst, src []byte) {
	s.Lock()
	defer s.Unlock()
	s.stream.XORKeyStream(dst, src)
}

// Int returns a uniform integer in [0, m).
func (s *Source) Int(m *big.Int) *big.Int {
	return random.Int(m, s)
}
