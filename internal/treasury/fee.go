package treasury

import (
	"math"

	"prismpapers/pkg/domain"
)

// FeePercent is the fixed platform cut taken from every settled payment.
const FeePercent = 5

// Split computes the platform fee and the net payout for a gross amount:
// fee = floor(gross * FeePercent / 100), net = gross - fee.
func Split(gross uint64) (fee, net uint64, err error) {
	scaled, err := MulU64(gross, FeePercent)
	if err != nil {
		return 0, 0, err
	}
	fee = scaled / 100
	return fee, gross - fee, nil
}

// MulU64 multiplies with overflow detection.
func MulU64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, domain.ErrMathOverflow
	}
	return a * b, nil
}

// AddU64 adds with overflow detection.
func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}

// AddU32 adds with overflow detection.
func AddU32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}

// AddU16 adds with overflow detection.
func AddU16(a, b uint16) (uint16, error) {
	if a > math.MaxUint16-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}
