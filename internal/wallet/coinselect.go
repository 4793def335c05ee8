// Package wallet implements client-side, non-consensus logic: decay-aware
// coin selection for spending. Nothing here is exercised by block
// validation; it exists to help a sender pick which UTXOs to spend so the
// fewest rills are lost to decay between now and confirmation.
package wallet

import (
	"sort"

	"github.com/rillcoin/rill/internal/decay"
	"github.com/rillcoin/rill/internal/rillcore"
)

// ChainView is the subset of chain state coin selection needs: supply for
// concentration computation, and per-cluster balances. *chainstore.ChainState
// satisfies it.
type ChainView interface {
	CirculatingSupply() uint64
	ClusterBalance(clusterID rillcore.Hash) uint64
}

// WalletUtxo annotates a spendable UTXO with its decay-adjusted values at
// selection time.
type WalletUtxo struct {
	OutPoint       rillcore.OutPoint
	Entry          rillcore.UtxoEntry
	EffectiveValue uint64
	NominalValue   uint64
	DecayAmount    uint64
}

// CoinSelection is the outcome of a successful Select call.
type CoinSelection struct {
	Selected       []WalletUtxo
	TotalNominal   uint64
	TotalEffective uint64
	TotalDecay     uint64
	Change         uint64
	Fee            uint64
}

// Select picks UTXOs to cover target plus fee, preferring the
// highest-decay outputs first to minimize value lost while they sit
// unspent. Ties are broken by smaller effective value, so large
// low-decay UTXOs are kept in reserve.
//
// utxos is the candidate set as (outpoint, entry) pairs, typically every
// UTXO owned by the spending key. fee is baseFee plus feePerInput for
// each input ultimately selected.
func Select(
	utxos []struct {
		OutPoint rillcore.OutPoint
		Entry    rillcore.UtxoEntry
	},
	target uint64,
	baseFee uint64,
	feePerInput uint64,
	engine *decay.Engine,
	chain ChainView,
	height uint64,
) (*CoinSelection, error) {
	if len(utxos) == 0 {
		return nil, &rillcore.WalletError{Kind: rillcore.NoUtxos}
	}
	if target == 0 {
		return nil, &rillcore.WalletError{Kind: rillcore.InvalidAmount}
	}

	supply := chain.CirculatingSupply()

	annotated := make([]WalletUtxo, 0, len(utxos))
	for _, u := range utxos {
		nominal := u.Entry.Output.Value
		blocksHeld := height - u.Entry.BlockHeight
		if u.Entry.BlockHeight > height {
			blocksHeld = 0
		}

		clusterBal := chain.ClusterBalance(u.Entry.ClusterID)
		concentration := engine.ConcentrationPPB(clusterBal, supply)
		effective := engine.EffectiveValue(nominal, concentration, blocksHeld)

		decayAmount := uint64(0)
		if nominal > effective {
			decayAmount = nominal - effective
		}

		annotated = append(annotated, WalletUtxo{
			OutPoint:       u.OutPoint,
			Entry:          u.Entry,
			EffectiveValue: effective,
			NominalValue:   nominal,
			DecayAmount:    decayAmount,
		})
	}

	// Spend the fastest-decaying coins first; among equal-decay coins,
	// prefer the smaller one so large holdings stay available for later
	// spends.
	sort.Slice(annotated, func(i, j int) bool {
		if annotated[i].DecayAmount != annotated[j].DecayAmount {
			return annotated[i].DecayAmount > annotated[j].DecayAmount
		}
		return annotated[i].EffectiveValue < annotated[j].EffectiveValue
	})

	var selected []WalletUtxo
	var totalEffective, totalNominal, totalDecay uint64

	for _, u := range annotated {
		selected = append(selected, u)
		totalEffective += u.EffectiveValue
		totalNominal += u.NominalValue
		totalDecay += u.DecayAmount

		fee := baseFee + feePerInput*uint64(len(selected))
		needed := target + fee

		if totalEffective >= needed {
			return &CoinSelection{
				Selected:       selected,
				TotalNominal:   totalNominal,
				TotalEffective: totalEffective,
				TotalDecay:     totalDecay,
				Change:         totalEffective - needed,
				Fee:            fee,
			}, nil
		}
	}

	fee := baseFee + feePerInput*uint64(len(selected))
	return nil, &rillcore.WalletError{
		Kind: rillcore.WalletInsufficientFunds,
		Have: totalEffective,
		Need: target + fee,
	}
}
