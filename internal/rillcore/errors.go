package rillcore

import "fmt"

// TransactionError is the typed error family for transaction-level failures.
type TransactionError struct {
	Kind  TxErrorKind
	Index int    // meaningful for InvalidSignature
	Have  uint64 // meaningful for InsufficientFunds
	Need  uint64
	Size  int // meaningful for OversizedTransaction
	Max   int
}

// TxErrorKind enumerates the transaction error variants named in the spec.
type TxErrorKind int

const (
	UnknownUtxo TxErrorKind = iota
	InsufficientFunds
	InvalidSignature
	DuplicateInput
	OversizedTransaction
	EmptyInputsOrOutputs
	ValueOverflow
	InvalidCoinbase
	ImmatureCoinbase
	ZeroValueOutput
	NullOutpointInNonCoinbase
)

func (e *TransactionError) Error() string {
	switch e.Kind {
	case UnknownUtxo:
		return "rillcore: input references unknown utxo"
	case InsufficientFunds:
		return fmt.Sprintf("rillcore: insufficient funds: have %d need %d", e.Have, e.Need)
	case InvalidSignature:
		return fmt.Sprintf("rillcore: invalid signature at input %d", e.Index)
	case DuplicateInput:
		return "rillcore: duplicate input outpoint within transaction"
	case OversizedTransaction:
		return fmt.Sprintf("rillcore: transaction size %d exceeds max %d", e.Size, e.Max)
	case EmptyInputsOrOutputs:
		return "rillcore: transaction has empty inputs or outputs"
	case ValueOverflow:
		return "rillcore: output value sum overflows or exceeds max supply"
	case InvalidCoinbase:
		return "rillcore: malformed coinbase transaction"
	case ImmatureCoinbase:
		return "rillcore: spent coinbase output has not reached maturity"
	case ZeroValueOutput:
		return "rillcore: output value must be strictly positive"
	case NullOutpointInNonCoinbase:
		return "rillcore: non-coinbase input uses the null outpoint"
	default:
		return "rillcore: transaction error"
	}
}

// BlockError is the typed error family for block-level failures.
type BlockError struct {
	Kind BlockErrorKind
	Size int
	Max  int
}

type BlockErrorKind int

const (
	OversizedBlock BlockErrorKind = iota
	MultipleCoinbase
	MissingCoinbase
	MerkleRootMismatch
	DifficultyMismatch
	ProofOfWorkInvalid
	TimestampTooOld
	TimestampTooFarInFuture
	DuplicateInputInBlock
	MissingDependency
	CoinbaseValueExceedsAllowed
	CheckpointMismatch
)

func (e *BlockError) Error() string {
	switch e.Kind {
	case OversizedBlock:
		return fmt.Sprintf("rillcore: block size %d exceeds max %d", e.Size, e.Max)
	case MultipleCoinbase:
		return "rillcore: block contains more than one coinbase transaction"
	case MissingCoinbase:
		return "rillcore: block's first transaction is not a coinbase"
	case MerkleRootMismatch:
		return "rillcore: merkle root does not match transaction set"
	case DifficultyMismatch:
		return "rillcore: header difficulty_target does not match expected next target"
	case ProofOfWorkInvalid:
		return "rillcore: proof of work hash exceeds difficulty target"
	case TimestampTooOld:
		return "rillcore: block timestamp not strictly greater than parent"
	case TimestampTooFarInFuture:
		return "rillcore: block timestamp exceeds max future skew"
	case DuplicateInputInBlock:
		return "rillcore: same outpoint spent twice within block"
	case MissingDependency:
		return "rillcore: transaction references an output not yet created"
	case CoinbaseValueExceedsAllowed:
		return "rillcore: coinbase output sum exceeds block reward plus fees plus pool release"
	case CheckpointMismatch:
		return "rillcore: block hash does not match pinned checkpoint"
	default:
		return "rillcore: block error"
	}
}

// DecayError is the typed error family for decay-engine failures.
type DecayError struct {
	Msg string
}

func (e *DecayError) Error() string { return "rillcore: decay: " + e.Msg }

// NetworkError is the typed error family for wire-protocol failures.
type NetworkError struct {
	Kind NetworkErrorKind
	Size int
	Max  int
	Msg  string
}

type NetworkErrorKind int

const (
	MessageTooLarge NetworkErrorKind = iota
	LocatorTooLarge
	PeerDisconnected
	MalformedMessage
)

func (e *NetworkError) Error() string {
	switch e.Kind {
	case MessageTooLarge:
		return fmt.Sprintf("rillcore: network message size %d exceeds limit", e.Size)
	case LocatorTooLarge:
		return fmt.Sprintf("rillcore: locator size %d exceeds max %d", e.Size, e.Max)
	case PeerDisconnected:
		return "rillcore: peer disconnected: " + e.Msg
	case MalformedMessage:
		return "rillcore: malformed network message: " + e.Msg
	default:
		return "rillcore: network error"
	}
}

// CryptoError wraps signature and hashing failures.
type CryptoError struct{ Msg string }

func (e *CryptoError) Error() string { return "rillcore: crypto: " + e.Msg }

// AddressError wraps bech32 address decode/encode failures.
type AddressError struct{ Msg string }

func (e *AddressError) Error() string { return "rillcore: address: " + e.Msg }

// MempoolError is the typed error family for mempool rejections.
type MempoolError struct{ Msg string }

func (e *MempoolError) Error() string { return "rillcore: mempool: " + e.Msg }

// ChainStateError wraps chain-store/reorg failures.
type ChainStateError struct{ Msg string }

func (e *ChainStateError) Error() string { return "rillcore: chain state: " + e.Msg }

// WalletError is the typed error family for coin-selection failures.
type WalletError struct {
	Kind WalletErrorKind
	Have uint64
	Need uint64
}

type WalletErrorKind int

const (
	NoUtxos WalletErrorKind = iota
	InvalidAmount
	WalletInsufficientFunds
)

func (e *WalletError) Error() string {
	switch e.Kind {
	case NoUtxos:
		return "rillcore: wallet: no utxos available for selection"
	case InvalidAmount:
		return "rillcore: wallet: target amount must be positive"
	case WalletInsufficientFunds:
		return fmt.Sprintf("rillcore: wallet: insufficient funds: have %d need %d", e.Have, e.Need)
	default:
		return "rillcore: wallet error"
	}
}
