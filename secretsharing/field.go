package secretsharing

import (
	"encoding/hex"
	"math/big"

	"go.dedis.ch/kyber/v4/group/mod"
	"golang.org/x/xerrors"
)

// MaxIndex is the largest share index a split can hand out.
const MaxIndex = 255

// DefaultModulus is the largest prime below 2^264. Secrets and share values
// are therefore encoded on 33 bytes.
var DefaultModulus = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 264)
	return p.Sub(p, big.NewInt(275))
}()

// Field is the prime field every share and secret lives in. It also fixes the
// width of the hexadecimal encoding so that leading zero bytes survive a
// round-trip.
type Field struct {
	modulus *big.Int
	width   int
}

// NewField returns the field of integers modulo p. p must be a prime greater
// than 2.
func NewField(p *big.Int) (*Field, error) {
	if p == nil {
		return nil, xerrors.New("field modulus is nil")
	}
	if p.Cmp(big.NewInt(2)) <= 0 {
		return nil, xerrors.Errorf("field modulus %s is too small", p)
	}
	if !p.ProbablyPrime(20) {
		return nil, xerrors.Errorf("field modulus %s is not prime", p)
	}

	return &Field{
		modulus: new(big.Int).Set(p),
		width:   (p.BitLen() + 7) / 8,
	}, nil
}

// DefaultField returns the field defined by DefaultModulus.
func DefaultField() *Field {
	return &Field{
		modulus: new(big.Int).Set(DefaultModulus),
		width:   (DefaultModulus.BitLen() + 7) / 8,
	}
}

// Modulus returns a copy of the field prime.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.modulus)
}

// Width returns the number of bytes used to encode a field element.
func (f *Field) Width() int {
	return f.width
}

// MaxShares returns how many shares a single split can produce. Indices have
// to be distinct non-zero elements of the field.
func (f *Field) MaxShares() int {
	if f.modulus.IsInt64() && f.modulus.Int64()-1 < MaxIndex {
		return int(f.modulus.Int64() - 1)
	}
	return MaxIndex
}

// Scalar returns v as an element of the field, or an error when v is out of
// [0, p).
func (f *Field) Scalar(v *big.Int) (*mod.Int, error) {
	if v.Sign() < 0 || v.Cmp(f.modulus) >= 0 {
		return nil, xerrors.Errorf("value does not fit a %d-bit field: %w",
			f.modulus.BitLen(), ErrSecretTooLarge)
	}
	return mod.NewInt(v, f.modulus), nil
}

// Int64 returns the field element v mod p.
func (f *Field) Int64(v int64) *mod.Int {
	return mod.NewInt64(v, f.modulus)
}

// Contains returns true when s is a reduced element of this field.
func (f *Field) Contains(s *mod.Int) bool {
	if s == nil || s.M == nil || s.M.Cmp(f.modulus) != 0 {
		return false
	}
	return s.V.Sign() >= 0 && s.V.Cmp(f.modulus) < 0
}

// DecodeSecret parses a hexadecimal secret. Strings shorter than the field
// width are read as if left padded with zeros.
func (f *Field) DecodeSecret(secret string) (*mod.Int, error) {
	if len(secret) == 0 || len(secret)%2 != 0 {
		return nil, xerrors.Errorf("secret must be a non-empty even-length hex string: %w",
			ErrMalformedSecret)
	}
	if len(secret) > 2*f.width {
		return nil, xerrors.Errorf("secret is %d bytes, field holds %d: %w",
			len(secret)/2, f.width, ErrSecretTooLarge)
	}

	buf, err := hex.DecodeString(secret)
	if err != nil {
		return nil, xerrors.Errorf("secret is not hex (%v): %w", err, ErrMalformedSecret)
	}

	return f.Scalar(new(big.Int).SetBytes(buf))
}

// EncodeSecret returns the lowercase fixed-width hexadecimal form of s.
func (f *Field) EncodeSecret(s *mod.Int) string {
	return hex.EncodeToString(f.bytes(s))
}

func (f *Field) bytes(s *mod.Int) []byte {
	buf := make([]byte, f.width)
	s.V.FillBytes(buf)
	return buf
}
