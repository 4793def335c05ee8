package decay

import (
	"sort"

	"github.com/rillcoin/rill/internal/rillcore"
)

// DetermineOutputCluster computes the cluster id assigned to a new
// output given the cluster ids of the inputs that funded it and the
// transaction's txid.
//
// Coinbase (no inputs): the new cluster id is the txid itself.
// Single distinct input cluster: outputs inherit that cluster id.
// Two or more distinct input clusters: the new id is the BLAKE3 hash
// over the sorted, de-duplicated set of input cluster ids -- this
// operation is commutative and duplicate-insensitive by construction.
func DetermineOutputCluster(inputClusterIDs []rillcore.Hash, txid rillcore.Hash) rillcore.Hash {
	if len(inputClusterIDs) == 0 {
		return txid
	}

	unique := dedupeSorted(inputClusterIDs)
	if len(unique) == 1 {
		return unique[0]
	}

	var buf []byte
	for _, id := range unique {
		buf = append(buf, id[:]...)
	}
	return rillcore.Blake3Sum256(buf)
}

func dedupeSorted(ids []rillcore.Hash) []rillcore.Hash {
	sorted := append([]rillcore.Hash(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	out := sorted[:0]
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			out = append(out, id)
		}
	}
	return out
}

// LineageFactor returns the fraction (in ConcentrationPrecision units)
// of a UTXO's nominal balance still attributed to its cluster after
// blocksHeld blocks:
//
//   - full association (ConcentrationPrecision) at blocksHeld = 0
//   - half association at LineageHalfLife blocks
//   - zero association at LineageFullReset blocks and beyond
//
// The curve is piecewise linear between those three points.
func LineageFactor(blocksHeld uint64) uint64 {
	if blocksHeld >= rillcore.LineageFullReset {
		return 0
	}
	if blocksHeld <= rillcore.LineageHalfLife {
		half := rillcore.ConcentrationPrecision / 2
		return rillcore.ConcentrationPrecision - half*blocksHeld/rillcore.LineageHalfLife
	}
	remaining := rillcore.LineageFullReset - blocksHeld
	rng := rillcore.LineageFullReset - rillcore.LineageHalfLife
	half := rillcore.ConcentrationPrecision / 2
	return half * remaining / rng
}

// LineageAdjustedBalance scales nominalBalance by LineageFactor(blocksHeld),
// used by wallet-side (non-consensus) tooling to estimate how much of a
// cluster's balance should still count toward concentration ratios for
// stale holdings.
func LineageAdjustedBalance(nominalBalance, blocksHeld uint64) uint64 {
	factor := LineageFactor(blocksHeld)
	return mulDiv(nominalBalance, factor, rillcore.ConcentrationPrecision)
}
