// Package decay implements progressive concentration decay: the sigmoid
// lookup table that drives the per-block decay rate, cluster-id
// inheritance rules, lineage weakening, and the engine that ties them
// together to compute a UTXO's effective (post-decay) value.
package decay

import "github.com/rillcoin/rill/internal/rillcore"

// tableStep is the spacing between table entries in scaled input units:
// each step is 0.5 of sigmoid input, scaled by ConcentrationPrecision.
const tableStep = rillcore.ConcentrationPrecision / 2

// sigmoidTable holds sigmoid(x) * SigmoidPrecision for x = 0.0, 0.5, ...,
// 8.0 (17 entries), rounded to the nearest integer. Beyond x = 8 the
// curve saturates at the table's last entry (~0.9997).
var sigmoidTable = [17]uint64{
	500_000_000, // sigmoid(0.0)
	622_459_331, // sigmoid(0.5)
	731_058_579, // sigmoid(1.0)
	817_574_476, // sigmoid(1.5)
	880_797_078, // sigmoid(2.0)
	924_141_820, // sigmoid(2.5)
	952_574_127, // sigmoid(3.0)
	970_687_769, // sigmoid(3.5)
	982_013_790, // sigmoid(4.0)
	989_013_057, // sigmoid(4.5)
	993_307_149, // sigmoid(5.0)
	995_929_862, // sigmoid(5.5)
	997_527_377, // sigmoid(6.0)
	998_498_883, // sigmoid(6.5)
	999_088_949, // sigmoid(7.0)
	999_447_221, // sigmoid(7.5)
	999_664_650, // sigmoid(8.0)
}

// SigmoidPositive computes sigmoid(x) * SigmoidPrecision for a
// non-negative scaled input via table lookup with linear interpolation.
// xScaled represents the sigmoid argument multiplied by
// ConcentrationPrecision; xScaled = 1_000_000_000 is sigmoid(1.0).
//
// For negative inputs, callers use the symmetry property
// sigmoid(-x) = SigmoidPrecision - sigmoid(x) rather than calling this
// with a negated argument (the input is unsigned).
func SigmoidPositive(xScaled uint64) uint64 {
	index := xScaled / tableStep
	if index >= uint64(len(sigmoidTable)-1) {
		return sigmoidTable[len(sigmoidTable)-1]
	}
	frac := xScaled % tableStep
	lo := sigmoidTable[index]
	hi := sigmoidTable[index+1]
	diff := hi - lo
	// diff * frac can exceed 64 bits' comfortable headroom only at
	// pathological inputs; both operands are bounded well under 2^32 in
	// practice (diff <= ~1.2e8, frac < 5e8), so the uint64 product never
	// overflows.
	return lo + diff*frac/tableStep
}
