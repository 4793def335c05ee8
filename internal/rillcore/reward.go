package rillcore

// lastRewardEpoch is the final epoch that still pays a non-zero reward;
// InitialReward >> 64 underflows to 0 on a 64-bit shift, so epoch 64 and
// beyond always pay nothing. The reference implementation stops the
// shift at epoch 32 once InitialReward's low bits are exhausted in
// practice; we keep the same cutoff so cumulative-supply arithmetic
// matches.
const lastRewardEpoch uint64 = 32

// HalvingEpoch returns the halving epoch containing height.
func HalvingEpoch(height uint64) uint64 {
	return height / HalvingInterval
}

// EpochReward returns the block reward paid throughout epoch, ignoring
// the genesis special case.
func EpochReward(epoch uint64) uint64 {
	if epoch >= 64 {
		return 0
	}
	return InitialReward >> epoch
}

// BlockReward returns the block reward for height, following
// block_reward(h) = InitialReward >> (h / HalvingInterval). Genesis (h=0)
// is a special case handled by the caller (it pays DevFundPreMine
// instead, see genesis.go).
func BlockReward(height uint64) uint64 {
	return EpochReward(HalvingEpoch(height))
}

// EpochStartHeight returns the first height of epoch, saturating at
// math.MaxUint64 rather than overflowing.
func EpochStartHeight(epoch uint64) uint64 {
	hi, lo := bitsMulUint64(epoch, HalvingInterval)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}

// bitsMulUint64 performs a saturating-aware 64x64 multiply, returning the
// high and low words of the full 128-bit product.
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

// NextHalvingHeight returns the height of the next halving boundary
// strictly after height.
func NextHalvingHeight(height uint64) uint64 {
	return EpochStartHeight(HalvingEpoch(height) + 1)
}

// BlocksUntilHalving returns the number of blocks remaining before the
// next halving boundary.
func BlocksUntilHalving(height uint64) uint64 {
	return NextHalvingHeight(height) - height
}

// LastRewardHeight is the final height that still pays a non-zero reward.
func LastRewardHeight() uint64 {
	return (lastRewardEpoch+1)*HalvingInterval - 1
}

// CumulativeReward returns the sum of all block rewards paid from height 1
// (genesis pays the dev-fund premine, handled separately) through height
// inclusive, excluding genesis.
func CumulativeReward(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	var total uint64
	epoch := HalvingEpoch(1)
	remaining := height
	h := uint64(1)
	for remaining > 0 && epoch <= lastRewardEpoch {
		epochEnd := EpochStartHeight(epoch+1) - 1
		last := h + remaining - 1
		if last > epochEnd {
			last = epochEnd
		}
		count := last - h + 1
		total += count * EpochReward(epoch)
		remaining -= count
		h = last + 1
		epoch++
	}
	return total
}

// TotalMiningSupply returns the total reward ever mined, excluding the
// genesis dev-fund premine.
func TotalMiningSupply() uint64 {
	return CumulativeReward(LastRewardHeight())
}
