package secretsharing

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v4/group/mod"
)

// polynomial is f(x) = c[0] + c[1]*x + ... + c[t-1]*x^(t-1) mod p.
type polynomial struct {
	m      *big.Int
	coeffs []*mod.Int
}

// newPolynomial samples a polynomial of degree t-1 whose constant term is
// secret. The other coefficients are uniform in [0, p).
func newPolynomial(m *big.Int, secret *mod.Int, t int, rand cipher.Stream) *polynomial {
	coeffs := make([]*mod.Int, t)
	coeffs[0] = mod.NewInt(&secret.V, m)
	for i := 1; i < t; i++ {
		c := mod.NewInt64(0, m)
		c.Pick(rand)
		coeffs[i] = c
	}

	return &polynomial{m: m, coeffs: coeffs}
}

// eval evaluates the polynomial at x with Horner's rule.
func (p *polynomial) eval(x uint32) *mod.Int {
	xi := mod.NewInt64(int64(x), p.m)
	v := mod.NewInt64(0, p.m)
	for j := len(p.coeffs) - 1; j >= 0; j-- {
		v.Mul(v, xi)
		v.Add(v, p.coeffs[j])
	}
	return v
}

// shares returns (i, f(i)) for i = 1..n.
func (p *polynomial) shares(n int) []*Share {
	shares := make([]*Share, n)
	for i := 1; i <= n; i++ {
		shares[i-1] = &Share{
			Index: uint32(i),
			Value: p.eval(uint32(i)),
		}
	}
	return shares
}

// interpolate evaluates at x the unique polynomial of degree < len(shares)
// that goes through every share. Indices must be pairwise distinct.
//
//	L(x) = sum_i y_i * prod_{j != i} (x - x_j) / (x_i - x_j)
func interpolate(m *big.Int, shares []*Share, x int64) *mod.Int {
	xt := mod.NewInt64(x, m)
	acc := mod.NewInt64(0, m)

	for i, si := range shares {
		xi := mod.NewInt64(int64(si.Index), m)
		num := mod.NewInt64(1, m)
		den := mod.NewInt64(1, m)

		for j, sj := range shares {
			if i == j {
				continue
			}
			xj := mod.NewInt64(int64(sj.Index), m)
			num.Mul(num, mod.NewInt64(0, m).Sub(xt, xj))
			den.Mul(den, mod.NewInt64(0, m).Sub(xi, xj))
		}

		basis := mod.NewInt64(0, m)
		basis.Div(num, den)
		basis.Mul(basis, si.Value)
		acc.Add(acc, basis)
	}

	return acc
}
