package protocol

// CalculateEmission returns BaseEmission(t) * effortWeight / 100.
// It fails with ErrMathOverflow instead of wrapping.
func CalculateEmission(t WorkType, effortWeight uint64) (uint64, error) {
	product, ok := checkedMul(BaseEmission(t), effortWeight)
	if !ok {
		return 0, ErrMathOverflow
	}

	return product / 100, nil
}
