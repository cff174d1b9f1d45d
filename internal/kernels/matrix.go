package kernels

// Mat3 is a row-major 3x3 float32 matrix.
type Mat3 [3][3]float32

// MultTranspose returns mᵀ·o.
func (m *Mat3) MultTranspose(o *Mat3) Mat3 {
	var r Mat3
	for i := range 3 {
		for j := range 3 {
			var s float32
			for k := range 3 {
				s += m[k][i] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// Transpose returns mᵀ.
func (m *Mat3) Transpose() Mat3 {
	var r Mat3
	for i := range 3 {
		for j := range 3 {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Mul returns m·o.
func (m *Mat3) Mul(o *Mat3) Mat3 {
	var r Mat3
	for i := range 3 {
		for j := range 3 {
			var s float32
			for k := range 3 {
				s += m[i][k] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// MatrixPairs fills n pairs of matrices from values, alternating between the
// two matrices element by element. values must hold at least 18*n entries.
func MatrixPairs(values []float32, n int) (lhs, rhs []Mat3) {
	lhs = make([]Mat3, n)
	rhs = make([]Mat3, n)
	it := 0
	for i := range n {
		for a := range 3 {
			for b := range 3 {
				lhs[i][a][b] = values[it]
				rhs[i][a][b] = values[it+1]
				it += 2
			}
		}
	}
	return lhs, rhs
}
