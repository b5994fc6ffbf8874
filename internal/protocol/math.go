package protocol

import "math/bits"

// checkedMul returns a * b, or ok=false when the product does not fit in 64 bits.
func checkedMul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// checkedAdd returns a + b, or ok=false on wrap.
func checkedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// saturatingSub returns a - b, floored at zero.
func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}

	return a - b
}
