package rillcore

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Canonical serialization. All multi-byte integers are little-endian;
// variable-length byte slices are length-prefixed with a uint32 count.
// This mirrors the reference implementation's bincode framing closely
// enough to reuse its size and ordering guarantees without depending on
// bincode itself.

func putUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func putBytes(buf *bytes.Buffer, b []byte) {
	putUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func putHash(buf *bytes.Buffer, h Hash) {
	buf.Write(h[:])
}

func putOutPoint(buf *bytes.Buffer, op OutPoint) {
	putHash(buf, op.TxID)
	putUint32(buf, op.Index)
}

func putTxOutput(buf *bytes.Buffer, o TxOutput) {
	putUint64(buf, o.Value)
	putHash(buf, o.PubkeyHash)
}

// putTxInput writes an input. When redactSig is true, the signature and
// public_key fields are written as empty regardless of their actual
// contents -- this is the sighash encoding used for signing.
func putTxInput(buf *bytes.Buffer, in TxInput, redactSig bool) {
	putOutPoint(buf, in.PreviousOutput)
	if redactSig {
		putBytes(buf, nil)
		putBytes(buf, nil)
		return
	}
	putBytes(buf, in.Signature)
	putBytes(buf, in.PublicKey)
}

// encodeTransaction returns the canonical serialization of tx. When
// redactSig is true every input's signature and public_key fields are
// written as empty -- this is the sighash form used for signing and
// verification (spec.md section "Transaction id").
func encodeTransaction(tx *Transaction, redactSig bool) []byte {
	var buf bytes.Buffer
	putUint32(&buf, tx.Version)
	putUint32(&buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		putTxInput(&buf, in, redactSig)
	}
	putUint32(&buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		putTxOutput(&buf, out)
	}
	putUint64(&buf, tx.LockTime)
	return buf.Bytes()
}

// CanonicalBytes returns the canonical (non-redacted) serialization of tx,
// the form hashed to produce the transaction's txid.
func (tx *Transaction) CanonicalBytes() []byte {
	return encodeTransaction(tx, false)
}

// SighashBytes returns the serialization of tx with every input's
// signature and public_key fields zeroed (emptied), the form that is
// signed and verified per input.
func (tx *Transaction) SighashBytes() []byte {
	return encodeTransaction(tx, true)
}

// TxID is the BLAKE3 hash of tx's canonical serialization.
func (tx *Transaction) TxID() Hash {
	return Blake3Sum256(tx.CanonicalBytes())
}

// Sighash is the hash signed and verified for each input of tx.
func (tx *Transaction) Sighash() Hash {
	return Blake3Sum256(tx.SighashBytes())
}

// headerEncodedSize is the fixed canonical header width named in the spec.
const headerEncodedSize = 96

// CanonicalBytes returns the fixed 96-byte canonical encoding of h. The
// version field, though stored as a uint32, is encoded in its own 8-byte
// slot: 8 (version) + 32 (prev_hash) + 32 (merkle_root) + 8 (timestamp) +
// 8 (difficulty_target) + 8 (nonce) = 96.
func (h *BlockHeader) CanonicalBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(headerEncodedSize)
	putUint64(&buf, uint64(h.Version))
	putHash(&buf, h.PrevHash)
	putHash(&buf, h.MerkleRoot)
	putUint64(&buf, h.Timestamp)
	putUint64(&buf, h.DifficultyTarget)
	putUint64(&buf, h.Nonce)
	return buf.Bytes()
}

// EncodeBlock returns the canonical serialization of a full block: its
// header followed by a uint32 transaction count and each transaction's
// own length-prefixed canonical encoding.
func EncodeBlock(b *Block) []byte {
	var buf bytes.Buffer
	buf.Write(b.Header.CanonicalBytes())
	putUint32(&buf, uint32(len(b.Transactions)))
	for i := range b.Transactions {
		putBytes(&buf, b.Transactions[i].CanonicalBytes())
	}
	return buf.Bytes()
}

// DecodeBlock parses the encoding written by EncodeBlock.
func DecodeBlock(data []byte) (*Block, error) {
	header, rest, err := DecodeBlockHeader(data)
	if err != nil {
		return nil, err
	}
	count, rest, err := getUint32(rest)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, count)
	for i := uint32(0); i < count; i++ {
		var txBytes []byte
		txBytes, rest, err = getBytes(rest)
		if err != nil {
			return nil, err
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return &Block{Header: *header, Transactions: txs}, nil
}

func getUint32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("rillcore: truncated uint32")
	}
	return binary.LittleEndian.Uint32(data), data[4:], nil
}

func getUint64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("rillcore: truncated uint64")
	}
	return binary.LittleEndian.Uint64(data), data[8:], nil
}

func getHash(data []byte) (Hash, []byte, error) {
	var h Hash
	if len(data) < HashSize {
		return h, nil, fmt.Errorf("rillcore: truncated hash")
	}
	copy(h[:], data[:HashSize])
	return h, data[HashSize:], nil
}

func getBytes(data []byte) ([]byte, []byte, error) {
	n, rest, err := getUint32(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, fmt.Errorf("rillcore: truncated byte slice")
	}
	return rest[:n], rest[n:], nil
}

func getOutPoint(data []byte) (OutPoint, []byte, error) {
	txid, rest, err := getHash(data)
	if err != nil {
		return OutPoint{}, nil, err
	}
	index, rest, err := getUint32(rest)
	if err != nil {
		return OutPoint{}, nil, err
	}
	return OutPoint{TxID: txid, Index: index}, rest, nil
}

func getTxOutput(data []byte) (TxOutput, []byte, error) {
	value, rest, err := getUint64(data)
	if err != nil {
		return TxOutput{}, nil, err
	}
	pubkeyHash, rest, err := getHash(rest)
	if err != nil {
		return TxOutput{}, nil, err
	}
	return TxOutput{Value: value, PubkeyHash: pubkeyHash}, rest, nil
}

func getTxInput(data []byte) (TxInput, []byte, error) {
	op, rest, err := getOutPoint(data)
	if err != nil {
		return TxInput{}, nil, err
	}
	sig, rest, err := getBytes(rest)
	if err != nil {
		return TxInput{}, nil, err
	}
	pubkey, rest, err := getBytes(rest)
	if err != nil {
		return TxInput{}, nil, err
	}
	return TxInput{PreviousOutput: op, Signature: sig, PublicKey: pubkey}, rest, nil
}

// DecodeTransaction parses the canonical (non-redacted) encoding written
// by CanonicalBytes, returning an error if data is truncated or
// malformed. It does not trim trailing bytes: any data left over after a
// fully-parsed transaction is treated as an error by the caller if it
// cares, but DecodeTransaction itself does not require data be
// exhausted, matching DecodeBlockHeader's "decode a prefix" contract.
func DecodeTransaction(data []byte) (*Transaction, error) {
	version, rest, err := getUint32(data)
	if err != nil {
		return nil, err
	}
	inCount, rest, err := getUint32(rest)
	if err != nil {
		return nil, err
	}
	inputs := make([]TxInput, 0, inCount)
	for i := uint32(0); i < inCount; i++ {
		var in TxInput
		in, rest, err = getTxInput(rest)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	outCount, rest, err := getUint32(rest)
	if err != nil {
		return nil, err
	}
	outputs := make([]TxOutput, 0, outCount)
	for i := uint32(0); i < outCount; i++ {
		var out TxOutput
		out, rest, err = getTxOutput(rest)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	lockTime, _, err := getUint64(rest)
	if err != nil {
		return nil, err
	}
	return &Transaction{Version: version, Inputs: inputs, Outputs: outputs, LockTime: lockTime}, nil
}

// DecodeBlockHeader parses the fixed 96-byte canonical header encoding
// from the front of data, returning the parsed header and the remaining
// unconsumed bytes.
func DecodeBlockHeader(data []byte) (*BlockHeader, []byte, error) {
	if len(data) < headerEncodedSize {
		return nil, nil, fmt.Errorf("rillcore: truncated block header")
	}
	version, rest, err := getUint64(data)
	if err != nil {
		return nil, nil, err
	}
	prevHash, rest, err := getHash(rest)
	if err != nil {
		return nil, nil, err
	}
	merkleRoot, rest, err := getHash(rest)
	if err != nil {
		return nil, nil, err
	}
	timestamp, rest, err := getUint64(rest)
	if err != nil {
		return nil, nil, err
	}
	difficultyTarget, rest, err := getUint64(rest)
	if err != nil {
		return nil, nil, err
	}
	nonce, rest, err := getUint64(rest)
	if err != nil {
		return nil, nil, err
	}
	return &BlockHeader{
		Version:          uint32(version),
		PrevHash:         prevHash,
		MerkleRoot:       merkleRoot,
		Timestamp:        timestamp,
		DifficultyTarget: difficultyTarget,
		Nonce:            nonce,
	}, rest, nil
}
