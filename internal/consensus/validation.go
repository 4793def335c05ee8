package consensus

import (
	"github.com/rillcoin/rill/internal/rillcore"
)

// UtxoView is the minimal read interface validation needs over the UTXO
// set: resolve an outpoint to its live entry.
type UtxoView interface {
	Get(op rillcore.OutPoint) (rillcore.UtxoEntry, bool)
}

// CheckTransactionStateless applies the checks that require no chain
// context: non-empty inputs/outputs, positive output values, output sum
// bounded by MaxSupply, no duplicate inputs, size bound, and the
// coinbase/non-coinbase null-outpoint shape rules.
func CheckTransactionStateless(tx *rillcore.Transaction) error {
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return &rillcore.TransactionError{Kind: rillcore.EmptyInputsOrOutputs}
	}

	size := len(tx.CanonicalBytes())
	if size > rillcore.MaxTxSize {
		return &rillcore.TransactionError{Kind: rillcore.OversizedTransaction, Size: size, Max: rillcore.MaxTxSize}
	}

	isCoinbase := tx.IsCoinbase()
	if isCoinbase {
		if len(tx.Inputs) != 1 {
			return &rillcore.TransactionError{Kind: rillcore.InvalidCoinbase}
		}
	} else {
		for _, in := range tx.Inputs {
			if in.PreviousOutput.IsNull() {
				return &rillcore.TransactionError{Kind: rillcore.NullOutpointInNonCoinbase}
			}
		}
	}

	seen := make(map[rillcore.OutPoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, dup := seen[in.PreviousOutput]; dup {
			return &rillcore.TransactionError{Kind: rillcore.DuplicateInput}
		}
		seen[in.PreviousOutput] = struct{}{}
	}

	var total uint64
	for _, out := range tx.Outputs {
		if out.Value == 0 {
			return &rillcore.TransactionError{Kind: rillcore.ZeroValueOutput}
		}
		next := total + out.Value
		if next < total || next > rillcore.MaxSupply {
			return &rillcore.TransactionError{Kind: rillcore.ValueOverflow}
		}
		total = next
	}

	return nil
}

// CheckTransactionStateful applies the checks that require the current
// UTXO set and chain height: every input resolves to a live, mature
// UTXO, inputs cover outputs, and every signature verifies.
func CheckTransactionStateful(tx *rillcore.Transaction, utxos UtxoView, height uint64) error {
	if tx.IsCoinbase() {
		return nil
	}

	var totalIn, totalOut uint64
	for i, in := range tx.Inputs {
		entry, ok := utxos.Get(in.PreviousOutput)
		if !ok {
			return &rillcore.TransactionError{Kind: rillcore.UnknownUtxo}
		}
		if !entry.IsMature(height) {
			return &rillcore.TransactionError{Kind: rillcore.ImmatureCoinbase}
		}
		if !rillcore.VerifyInput(tx, i, entry.Output.PubkeyHash) {
			return &rillcore.TransactionError{Kind: rillcore.InvalidSignature, Index: i}
		}
		next := totalIn + entry.Output.Value
		if next < totalIn {
			return &rillcore.TransactionError{Kind: rillcore.ValueOverflow}
		}
		totalIn = next
	}
	for _, out := range tx.Outputs {
		totalOut += out.Value
	}
	if totalIn < totalOut {
		return &rillcore.TransactionError{Kind: rillcore.InsufficientFunds, Have: totalIn, Need: totalOut}
	}
	return nil
}

// Fee returns the fee paid by a non-coinbase transaction given its
// resolved inputs.
func Fee(tx *rillcore.Transaction, utxos UtxoView) (uint64, error) {
	var in, out uint64
	for _, input := range tx.Inputs {
		entry, ok := utxos.Get(input.PreviousOutput)
		if !ok {
			return 0, &rillcore.TransactionError{Kind: rillcore.UnknownUtxo}
		}
		in += entry.Output.Value
	}
	for _, o := range tx.Outputs {
		out += o.Value
	}
	if in < out {
		return 0, &rillcore.TransactionError{Kind: rillcore.InsufficientFunds, Have: in, Need: out}
	}
	return in - out, nil
}

// BlockContext carries the chain data CheckBlock needs beyond the
// block itself: parent timestamp, expected next difficulty target,
// block reward, decay pool release amount, and now (the producer's
// wall clock, used for future-skew checks).
type BlockContext struct {
	Height             uint64
	ParentTimestamp    uint64
	ExpectedDifficulty uint64
	BlockReward        uint64
	PoolRelease        uint64
	Now                int64
}

// CheckBlock validates a block against the rules in spec.md section 4.5
// "Block checks", given a UTXO view reflecting the state immediately
// before this block and a PowHasher for the proof-of-work check.
func CheckBlock(b *rillcore.Block, utxos UtxoView, ctx BlockContext, hasher PowHasher) error {
	size := 0
	for i := range b.Transactions {
		size += len(b.Transactions[i].CanonicalBytes())
	}
	if size > rillcore.MaxBlockSize {
		return &rillcore.BlockError{Kind: rillcore.OversizedBlock, Size: size, Max: rillcore.MaxBlockSize}
	}

	if len(b.Transactions) == 0 || !b.Transactions[0].IsCoinbase() {
		return &rillcore.BlockError{Kind: rillcore.MissingCoinbase}
	}
	for _, tx := range b.Transactions[1:] {
		if tx.IsCoinbase() {
			return &rillcore.BlockError{Kind: rillcore.MultipleCoinbase}
		}
	}

	leaves := make([]rillcore.Hash, len(b.Transactions))
	for i := range b.Transactions {
		leaves[i] = b.Transactions[i].TxID()
	}
	if rillcore.MerkleRoot(leaves) != b.Header.MerkleRoot {
		return &rillcore.BlockError{Kind: rillcore.MerkleRootMismatch}
	}

	if b.Header.DifficultyTarget != ctx.ExpectedDifficulty {
		return &rillcore.BlockError{Kind: rillcore.DifficultyMismatch}
	}

	if err := hasher.UpdateKeyIfNeeded(ctx.Height, nil); err != nil {
		return err
	}
	powHash, err := hasher.Hash(&b.Header)
	if err != nil {
		return err
	}
	if !rillcore.CheckProofOfWork(powHash, b.Header.DifficultyTarget) {
		return &rillcore.BlockError{Kind: rillcore.ProofOfWorkInvalid}
	}

	if b.Header.Timestamp <= ctx.ParentTimestamp {
		return &rillcore.BlockError{Kind: rillcore.TimestampTooOld}
	}
	if int64(b.Header.Timestamp) > ctx.Now+rillcore.MaxFutureSkew {
		return &rillcore.BlockError{Kind: rillcore.TimestampTooFarInFuture}
	}

	if err := checkIntraBlockSpends(b, utxos); err != nil {
		return err
	}

	var feeTotal uint64
	view := &overlayView{base: utxos, created: map[rillcore.OutPoint]rillcore.UtxoEntry{}}
	for txIdx, tx := range b.Transactions {
		for outIdx, out := range tx.Outputs {
			op := rillcore.OutPoint{TxID: tx.TxID(), Index: uint32(outIdx)}
			view.created[op] = rillcore.UtxoEntry{Output: out, BlockHeight: ctx.Height, IsCoinbase: txIdx == 0}
		}
	}
	for _, tx := range b.Transactions[1:] {
		fee, err := Fee(&tx, view)
		if err != nil {
			return err
		}
		feeTotal += fee
	}

	var coinbaseOut uint64
	for _, out := range b.Transactions[0].Outputs {
		coinbaseOut += out.Value
	}
	allowed := ctx.BlockReward + feeTotal + ctx.PoolRelease
	if coinbaseOut > allowed {
		return &rillcore.BlockError{Kind: rillcore.CoinbaseValueExceedsAllowed}
	}

	return nil
}

// checkIntraBlockSpends ensures no outpoint is spent twice within the
// block and that every non-coinbase input resolves either to the
// pre-block UTXO set or to an output created earlier in this block
// (dependency order is mandatory: a tx may only reference outputs of
// strictly earlier transactions in the same block).
func checkIntraBlockSpends(b *rillcore.Block, utxos UtxoView) error {
	spent := make(map[rillcore.OutPoint]struct{})
	createdSoFar := make(map[rillcore.OutPoint]struct{})

	for txIdx, tx := range b.Transactions {
		if txIdx == 0 {
			for outIdx := range tx.Outputs {
				createdSoFar[rillcore.OutPoint{TxID: tx.TxID(), Index: uint32(outIdx)}] = struct{}{}
			}
			continue
		}
		for _, in := range tx.Inputs {
			if _, dup := spent[in.PreviousOutput]; dup {
				return &rillcore.BlockError{Kind: rillcore.DuplicateInputInBlock}
			}
			spent[in.PreviousOutput] = struct{}{}

			_, fromEarlierTx := createdSoFar[in.PreviousOutput]
			_, fromPriorState := utxos.Get(in.PreviousOutput)
			if !fromEarlierTx && !fromPriorState {
				return &rillcore.BlockError{Kind: rillcore.MissingDependency}
			}
		}
		for outIdx := range tx.Outputs {
			createdSoFar[rillcore.OutPoint{TxID: tx.TxID(), Index: uint32(outIdx)}] = struct{}{}
		}
	}
	return nil
}

// overlayView layers outputs created earlier in the same block on top
// of a base UtxoView, used while summing intra-block fees.
type overlayView struct {
	base    UtxoView
	created map[rillcore.OutPoint]rillcore.UtxoEntry
}

func (v *overlayView) Get(op rillcore.OutPoint) (rillcore.UtxoEntry, bool) {
	if e, ok := v.created[op]; ok {
		return e, true
	}
	return v.base.Get(op)
}
