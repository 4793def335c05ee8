package decay

import "github.com/rillcoin/rill/internal/rillcore"

// DecayRatePPB returns the per-block decay rate, in parts-per-billion,
// for a cluster holding concentrationPPB (its balance as a ppb fraction
// of circulating supply).
//
// Returns 0 when concentrationPPB <= DecayCThresholdPPB. Otherwise the
// rate ramps from roughly half of DecayRMaxPPB at the threshold up to
// DecayRMaxPPB at high concentrations, following
//
//	rate = R_MAX * sigmoid(k * (conc - threshold) / scale)
//
// with k = decayK fixed by the shape of the reference sigmoid table.
func DecayRatePPB(concentrationPPB uint64) uint64 {
	if concentrationPPB <= rillcore.DecayCThresholdPPB {
		return 0
	}
	const decayK = 4

	delta := concentrationPPB - rillcore.DecayCThresholdPPB
	xScaled := mulDiv(delta*decayK, rillcore.ConcentrationPrecision, rillcore.DecayCScalePPB)
	sig := SigmoidPositive(xScaled)
	return mulDiv(rillcore.DecayRMaxPPB, sig, rillcore.SigmoidPrecision)
}

// bitsMulUint64 returns the full 128-bit product a*b as (hi, lo), the
// same 32x32-limb decomposition used by rillcore's reward arithmetic.
func bitsMulUint64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	low := aLo * bLo
	mid1 := aHi * bLo
	mid2 := aLo * bHi
	high := aHi * bHi

	carry := (low >> 32) + (mid1 & mask32) + (mid2 & mask32)
	lo = (carry << 32) | (low & mask32)
	hi = high + (mid1 >> 32) + (mid2 >> 32) + (carry >> 32)
	return hi, lo
}

// div128 divides the 128-bit value (hi:lo) by c and returns the
// quotient, one bit at a time. Every call site in this package keeps hi
// far below c in practice (operands are ppb-scaled fixed-point values),
// so the quotient always fits in 64 bits; this never allocates and
// never needs an external big-integer package.
func div128(hi, lo, c uint64) uint64 {
	if hi == 0 {
		return lo / c
	}
	var quotient, rem uint64
	for i := 127; i >= 0; i-- {
		rem <<= 1
		var bit uint64
		if i >= 64 {
			bit = (hi >> uint(i-64)) & 1
		} else {
			bit = (lo >> uint(i)) & 1
		}
		rem |= bit
		quotient <<= 1
		if rem >= c {
			rem -= c
			quotient |= 1
		}
	}
	return quotient
}

// mulDiv computes floor(a*b/c) with a full 128-bit intermediate product,
// matching the u128-intermediate arithmetic spec.md requires for decay
// computations: no operand magnitude used anywhere in this package can
// silently overflow a plain 64-bit multiply.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bitsMulUint64(a, b)
	return div128(hi, lo, c)
}

// ApplyCompoundDecay returns nominal reduced by ratePPB compounded over
// blocksHeld blocks: nominal * (1 - rate)^blocksHeld. The retention
// factor (ConcentrationPrecision - ratePPB) is raised to blocksHeld by
// binary exponentiation, so an arbitrarily large blocksHeld (a u64)
// costs O(log blocksHeld) fixed-point multiplications rather than one
// per block held.
func ApplyCompoundDecay(nominal, ratePPB uint64, blocksHeld uint64) uint64 {
	if ratePPB == 0 || nominal == 0 || blocksHeld == 0 {
		return nominal
	}
	if ratePPB > rillcore.ConcentrationPrecision {
		ratePPB = rillcore.ConcentrationPrecision
	}
	factor := powFixedPoint(rillcore.ConcentrationPrecision-ratePPB, blocksHeld)
	effective := mulDiv(nominal, factor, rillcore.ConcentrationPrecision)
	if effective > nominal {
		return nominal
	}
	return effective
}

// powFixedPoint raises base (a value scaled by ConcentrationPrecision)
// to exp via binary exponentiation, returning a result scaled the same
// way: powFixedPoint(ConcentrationPrecision, exp) == ConcentrationPrecision
// for every exp (1.0^exp == 1.0).
func powFixedPoint(base, exp uint64) uint64 {
	result := rillcore.ConcentrationPrecision
	for exp > 0 {
		if exp&1 == 1 {
			result = mulDiv(result, base, rillcore.ConcentrationPrecision)
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		base = mulDiv(base, base, rillcore.ConcentrationPrecision)
	}
	return result
}
