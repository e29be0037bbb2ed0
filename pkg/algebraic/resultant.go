package algebraic

// Resultant computes the resultant of two polynomials in an eliminated
// variable y whose coefficients are themselves univariate rational
// polynomials. a and b list the coefficients by ascending power of y.
// The result is a polynomial in the remaining variable that vanishes
// exactly where a and b share a common root in y.
//
// The Sylvester determinant is evaluated with Bareiss fraction-free
// elimination, so all intermediate divisions are exact.
func Resultant(a, b []UniPoly) UniPoly {
	a = trimCoeffs(a)
	b = trimCoeffs(b)
	p, q := len(a)-1, len(b)-1
	if p < 0 || q < 0 {
		return nil
	}
	if p == 0 && q == 0 {
		return UniFromInt64(1)
	}
	n := p + q
	m := make([][]UniPoly, n)
	for i := range m {
		m[i] = make([]UniPoly, n)
	}
	// q rows of a's coefficients, descending powers, shifted right.
	for i := 0; i < q; i++ {
		for j := 0; j <= p; j++ {
			m[i][i+j] = a[p-j]
		}
	}
	// p rows of b's coefficients.
	for i := 0; i < p; i++ {
		for j := 0; j <= q; j++ {
			m[q+i][i+j] = b[q-j]
		}
	}
	for i := range m {
		for j := range m[i] {
			if m[i][j] == nil {
				m[i][j] = UniPoly(nil)
			}
		}
	}
	return bareissDet(m)
}

func trimCoeffs(c []UniPoly) []UniPoly {
	for len(c) > 0 && c[len(c)-1].IsZero() {
		c = c[:len(c)-1]
	}
	return c
}

// divExact divides u by v assuming the remainder is zero.
func divExact(u, v UniPoly) UniPoly {
	q, r := u.DivMod(v)
	if !r.IsZero() {
		panic("algebraic: inexact division in fraction-free elimination")
	}
	return q
}

func bareissDet(m [][]UniPoly) UniPoly {
	n := len(m)
	sign := 1
	prev := UniFromInt64(1)
	for k := 0; k < n-1; k++ {
		if m[k][k].IsZero() {
			piv := -1
			for i := k + 1; i < n; i++ {
				if !m[i][k].IsZero() {
					piv = i
					break
				}
			}
			if piv < 0 {
				return nil
			}
			m[k], m[piv] = m[piv], m[k]
			sign = -sign
		}
		for i := k + 1; i < n; i++ {
			for j := k + 1; j < n; j++ {
				t := m[k][k].Mul(m[i][j]).Sub(m[i][k].Mul(m[k][j]))
				if t.IsZero() {
					m[i][j] = nil
				} else {
					m[i][j] = divExact(t, prev)
				}
			}
			m[i][k] = nil
		}
		prev = m[k][k]
	}
	det := m[n-1][n-1]
	if sign < 0 {
		det = det.Neg()
	}
	return det
}
