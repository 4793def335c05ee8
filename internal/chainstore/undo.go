package chainstore

import "github.com/rillcoin/rill/internal/rillcore"

// undoEntry captures everything needed to unwind one connected block:
// the UTXOs it spent (to be restored) and the outpoints it created (to
// be removed), plus the chain totals from before the block connected.
type undoEntry struct {
	header           rillcore.BlockHeader
	spentUtxos       []spentUtxo
	createdOutpoints []rillcore.OutPoint
	prevSupply       uint64
	prevPoolBalance  uint64
}

type spentUtxo struct {
	outpoint rillcore.OutPoint
	entry    rillcore.UtxoEntry
}
