package rillcore

// OutPoint addresses a specific output of a specific transaction.
type OutPoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// NullOutPoint is the sentinel outpoint used by coinbase inputs.
func NullOutPoint() OutPoint {
	return OutPoint{TxID: ZeroHash, Index: 0xFFFFFFFF}
}

// IsNull reports whether op is the coinbase sentinel outpoint.
func (op OutPoint) IsNull() bool {
	return op.TxID.IsZero() && op.Index == 0xFFFFFFFF
}

// TxOutput pays value (in rills, strictly positive) to pubkey_hash.
// Every output in Rill is pay-to-pubkey-hash; there is no script system.
type TxOutput struct {
	Value      uint64 `json:"value"`
	PubkeyHash Hash   `json:"pubkeyHash"`
}

// TxInput spends previous_output. For coinbase inputs, previous_output is
// the null outpoint and signature carries a freely chosen tag that must
// uniquely identify the block height.
type TxInput struct {
	PreviousOutput OutPoint `json:"previousOutput"`
	Signature      []byte   `json:"signature"`
	PublicKey      []byte   `json:"publicKey"`
}

// Transaction is Rill's only transaction shape: ordered inputs, ordered
// outputs, a lock time and a version.
type Transaction struct {
	Version  uint32     `json:"version"`
	Inputs   []TxInput  `json:"inputs"`
	Outputs  []TxOutput `json:"outputs"`
	LockTime uint64     `json:"lockTime"`
}

// IsCoinbase reports whether tx has the coinbase shape: exactly one input
// using the null outpoint.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PreviousOutput.IsNull()
}

// BlockHeader is the fixed 96-byte canonically encoded block header.
type BlockHeader struct {
	Version          uint32 `json:"version"`
	PrevHash         Hash   `json:"prevHash"`
	MerkleRoot       Hash   `json:"merkleRoot"`
	Timestamp        uint64 `json:"timestamp"`
	DifficultyTarget uint64 `json:"difficultyTarget"`
	Nonce            uint64 `json:"nonce"`
}

// Block is a header plus its ordered transaction list. The first
// transaction is always the coinbase.
type Block struct {
	Header       BlockHeader   `json:"header"`
	Transactions []Transaction `json:"transactions"`
}

// UtxoEntry records an unspent output together with the chain-state
// bookkeeping needed for coinbase maturity and decay.
type UtxoEntry struct {
	Output      TxOutput `json:"output"`
	BlockHeight uint64   `json:"blockHeight"`
	IsCoinbase  bool     `json:"isCoinbase"`
	ClusterID   Hash     `json:"clusterId"`
}

// IsMature reports whether a coinbase UtxoEntry created at its BlockHeight
// may be spent at currentHeight.
func (u *UtxoEntry) IsMature(currentHeight uint64) bool {
	if !u.IsCoinbase {
		return true
	}
	return currentHeight >= u.BlockHeight+CoinbaseMaturity
}

// Cluster tracks the aggregate nominal balance attributed to a cluster id,
// used for concentration-ratio computation in the decay engine.
type Cluster struct {
	ID      Hash   `json:"id"`
	Balance uint64 `json:"balance"`
}

// AgentWalletState carries the Phase-1 inert Proof-of-Conduct fields. No
// consensus code currently mutates conduct_score or conduct_multiplier_bps;
// Profile projects them into the read-only ConductProfile, though no
// route in internal/api serves it.
type AgentWalletState struct {
	PubkeyHash           Hash   `json:"pubkeyHash"`
	RegisteredAtBlock    uint64 `json:"registeredAtBlock"`
	StakeBalance         uint64 `json:"stakeBalance"`
	StakeLockedUntil     uint64 `json:"stakeLockedUntil"`
	ConductScore         uint16 `json:"conductScore"`
	ConductMultiplierBPS uint64 `json:"conductMultiplierBps"`
	UndertowActive       bool   `json:"undertowActive"`
	UndertowExpiresAt    uint64 `json:"undertowExpiresAt"`
}

// NewAgentWalletState returns the default, neutral state for a freshly
// observed pubkey hash.
func NewAgentWalletState(pubkeyHash Hash, height uint64) AgentWalletState {
	return AgentWalletState{
		PubkeyHash:           pubkeyHash,
		RegisteredAtBlock:    height,
		ConductScore:         ConductScoreDefault,
		ConductMultiplierBPS: ConductMultiplierDefaultBPS,
	}
}

// ConductProfile is the RPC-facing projection of AgentWalletState.
type ConductProfile struct {
	PubkeyHash           Hash   `json:"pubkeyHash"`
	ConductScore         uint16 `json:"conductScore"`
	ConductMultiplierBPS uint64 `json:"conductMultiplierBps"`
	UndertowActive       bool   `json:"undertowActive"`
}

// Profile projects an AgentWalletState into its RPC-facing form.
func (a AgentWalletState) Profile() ConductProfile {
	return ConductProfile{
		PubkeyHash:           a.PubkeyHash,
		ConductScore:         a.ConductScore,
		ConductMultiplierBPS: a.ConductMultiplierBPS,
		UndertowActive:       a.UndertowActive,
	}
}
