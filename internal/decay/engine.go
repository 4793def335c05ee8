package decay

import "github.com/rillcoin/rill/internal/rillcore"

// Engine computes concentration ratios and effective (post-decay)
// values. It holds no state of its own; chain state and cluster
// balances are passed in by the caller at each call site.
type Engine struct{}

// NewEngine returns a ready-to-use decay Engine.
func NewEngine() *Engine { return &Engine{} }

// ConcentrationPPB returns a cluster's balance as a parts-per-billion
// fraction of circulating supply.
func (*Engine) ConcentrationPPB(clusterBalance, circulatingSupply uint64) uint64 {
	if circulatingSupply == 0 {
		return 0
	}
	return mulDiv(clusterBalance, rillcore.ConcentrationPrecision, circulatingSupply)
}

// EffectiveValue returns nominal's value after blocksHeld blocks of
// decay at the rate implied by concentrationPPB, compounded per block
// via ApplyCompoundDecay's binary exponentiation. The rate is held fixed
// across the whole horizon; chain-state decay likewise evaluates
// concentration once, when the output is spent.
func (*Engine) EffectiveValue(nominal, concentrationPPB, blocksHeld uint64) uint64 {
	rate := DecayRatePPB(concentrationPPB)
	if rate == 0 {
		return nominal
	}
	return ApplyCompoundDecay(nominal, rate, blocksHeld)
}

// PoolRelease returns the amount released from the decay pool to a
// block's coinbase: floor(poolBalance * DecayPoolReleaseBPS / 10_000).
func (*Engine) PoolRelease(poolBalance uint64) uint64 {
	return poolBalance * rillcore.DecayPoolReleaseBPS / rillcore.BPSPrecision
}
