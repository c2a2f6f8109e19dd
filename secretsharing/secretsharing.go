// Package secretsharing implements (t, n) threshold secret sharing over a
// prime field.
//
// A secret s is hidden as the constant term of a random polynomial
//
//	f(x) = s + a1*x + ... + a(t-1)*x^(t-1) mod p
//
// and share i is the point (i, f(i)). Any t shares determine f, hence f(0),
// by Lagrange interpolation while t-1 shares are consistent with every
// possible secret.
//
// The threshold is not stored in the shares. Recovering from fewer shares
// than were required at split time returns a wrong value without error: the
// caller is responsible for remembering t.
package secretsharing

import (
	"go.dedis.ch/kyber/v4/group/mod"
	"golang.org/x/xerrors"

	"quantumvault/entropy"
)

// Config holds the parameters of a Scheme.
type Config struct {
	// Field defaults to DefaultField when nil.
	Field *Field
	// Random feeds the polynomial coefficients. Defaults to entropy.Crypto.
	Random *entropy.Source
	// Production forbids non-cryptographic random sources.
	Production bool
}

// Scheme splits and recovers secrets. It holds no mutable state besides its
// random source, which is safe for concurrent use, so a Scheme can be shared
// between goroutines.
type Scheme struct {
	field *Field
	rand  *entropy.Source
}

// NewScheme returns a scheme for the given configuration.
func NewScheme(conf Config) (*Scheme, error) {
	f := conf.Field
	if f == nil {
		f = DefaultField()
	}

	r := conf.Random
	if r == nil {
		r = entropy.Crypto()
	}

	if conf.Production && !r.Secure() {
		return nil, xerrors.Errorf("source %q in production: %w", r.Name(), ErrInsecureRandomSource)
	}

	return &Scheme{field: f, rand: r}, nil
}

// Field returns the field of the scheme.
func (s *Scheme) Field() *Field {
	return s.field
}

// Split decodes the hexadecimal secret and splits it into n shares, any t of
// which reconstruct it.
func (s *Scheme) Split(secret string, t, n int) ([]*Share, error) {
	if err := s.checkThreshold(t, n); err != nil {
		return nil, err
	}

	v, err := s.field.DecodeSecret(secret)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode secret: %w", err)
	}

	return s.split(v, t, n), nil
}

// SplitScalar is Split for a secret that is already a field element.
func (s *Scheme) SplitScalar(secret *mod.Int, t, n int) ([]*Share, error) {
	if err := s.checkThreshold(t, n); err != nil {
		return nil, err
	}
	if secret == nil || !s.field.Contains(secret) {
		return nil, xerrors.Errorf("secret is not an element of the field: %w", ErrSecretTooLarge)
	}

	return s.split(secret, t, n), nil
}

func (s *Scheme) split(secret *mod.Int, t, n int) []*Share {
	poly := newPolynomial(s.field.modulus, secret, t, s.rand)
	return poly.shares(n)
}

func (s *Scheme) checkThreshold(t, n int) error {
	limit := s.field.MaxShares()
	if n < 1 || n > limit {
		return xerrors.Errorf("share count %d not in [1, %d]: %w", n, limit, ErrInvalidThreshold)
	}
	if t < 1 || t > n {
		return xerrors.Errorf("threshold %d not in [1, %d]: %w", t, n, ErrInvalidThreshold)
	}
	return nil
}

// Recover reconstructs the secret from the shares and returns it as a
// fixed-width hexadecimal string. The order of the shares is irrelevant.
func (s *Scheme) Recover(shares []*Share) (string, error) {
	v, err := s.RecoverScalar(shares)
	if err != nil {
		return "", err
	}
	return s.field.EncodeSecret(v), nil
}

// RecoverScalar is Recover returning the secret as a field element.
func (s *Scheme) RecoverScalar(shares []*Share) (*mod.Int, error) {
	if len(shares) < 2 {
		return nil, xerrors.Errorf("got %d share(s), need at least 2: %w",
			len(shares), ErrInsufficientShares)
	}

	err := s.Verify(shares)
	if err != nil {
		return nil, err
	}

	return interpolate(s.field.modulus, shares, 0), nil
}

// Verify checks that the shares are well formed and have distinct indices.
// Duplicates are reported even when they carry the same value.
func (s *Scheme) Verify(shares []*Share) error {
	limit := uint32(s.field.MaxShares())
	seen := make(map[uint32]struct{}, len(shares))
	for i, share := range shares {
		if share == nil {
			return xerrors.Errorf("share %d is nil: %w", i, ErrInconsistentShares)
		}
		if share.Index < 1 || share.Index > limit {
			return xerrors.Errorf("share %d has index %d outside [1, %d]: %w",
				i, share.Index, limit, ErrInconsistentShares)
		}
		if !s.field.Contains(share.Value) {
			return xerrors.Errorf("share %d value is not in the field: %w", i, ErrInconsistentShares)
		}
		if _, ok := seen[share.Index]; ok {
			return xerrors.Errorf("duplicate share index %d: %w", share.Index, ErrInconsistentShares)
		}
		seen[share.Index] = struct{}{}
	}
	return nil
}

// RandomSecret draws a uniform field element from src and returns its
// encoding. It is how a fresh root secret is made.
func (f *Field) RandomSecret(src *entropy.Source) string {
	return f.EncodeSecret(mod.NewInt(src.Int(f.modulus), f.modulus))
}
