// Package network implements Rill's wire-level concerns: the
// magic-prefixed, length-bounded message envelope, per-peer scoring and
// banning, and sliding-window rate limiting (spec.md section 4.6 "RPC
// surface" neighbor, section 5 "Concurrency & resource model", and
// section 6 "Wire messages"). The actual P2P transport/discovery layer
// (gossip topics, swarm dialing) is out of scope — see DESIGN.md's Open
// Question decision on transport.
package network

import (
	"encoding/binary"

	"github.com/rillcoin/rill/internal/rillcore"
)

// MessageKind identifies a NetworkMessage's payload shape.
type MessageKind byte

const (
	KindNewBlock MessageKind = iota
	KindNewTransaction
	KindGetBlock
	KindGetHeaders
)

// Message is a decoded wire message. Exactly one of the payload fields
// is populated, matching Kind.
type Message struct {
	Kind        MessageKind
	Block       *rillcore.Block
	Transaction *rillcore.Transaction
	BlockHash   rillcore.Hash
	Locator     []rillcore.Hash
}

// NewBlockMessage wraps a block for propagation.
func NewBlockMessage(b rillcore.Block) Message {
	return Message{Kind: KindNewBlock, Block: &b}
}

// NewTransactionMessage wraps a transaction for propagation.
func NewTransactionMessage(tx rillcore.Transaction) Message {
	return Message{Kind: KindNewTransaction, Transaction: &tx}
}

// NewGetBlockMessage requests a specific block by hash.
func NewGetBlockMessage(h rillcore.Hash) Message {
	return Message{Kind: KindGetBlock, BlockHash: h}
}

// NewGetHeadersMessage requests headers starting from a block locator.
func NewGetHeadersMessage(locator []rillcore.Hash) Message {
	return Message{Kind: KindGetHeaders, Locator: locator}
}

// Validate enforces per-kind constraints ahead of encoding and after
// decoding: currently only GetHeaders' locator length bound.
func (m *Message) Validate() error {
	if m.Kind == KindGetHeaders && len(m.Locator) > rillcore.MaxLocatorSize {
		return &rillcore.NetworkError{Kind: rillcore.LocatorTooLarge, Size: len(m.Locator), Max: rillcore.MaxLocatorSize}
	}
	return nil
}

// Encode renders m as MagicBytes followed by its payload, in the
// canonical little-endian encoding used everywhere else in the
// protocol. Returns MessageTooLarge if the encoded frame would exceed
// MaxMessageSize.
func (m *Message) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var payload []byte
	payload = append(payload, byte(m.Kind))
	switch m.Kind {
	case KindNewBlock:
		payload = append(payload, rillcore.EncodeBlock(m.Block)...)
	case KindNewTransaction:
		payload = append(payload, m.Transaction.CanonicalBytes()...)
	case KindGetBlock:
		payload = append(payload, m.BlockHash[:]...)
	case KindGetHeaders:
		payload = append(payload, encodeLocator(m.Locator)...)
	default:
		return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "unknown message kind"}
	}

	total := len(rillcore.MagicBytes) + len(payload)
	if total > rillcore.MaxMessageSize {
		return nil, &rillcore.NetworkError{Kind: rillcore.MessageTooLarge, Size: total, Max: rillcore.MaxMessageSize}
	}

	buf := make([]byte, 0, total)
	buf = append(buf, rillcore.MagicBytes[:]...)
	buf = append(buf, payload...)
	return buf, nil
}

// Decode parses a wire frame produced by Encode. Size is checked before
// any deserialization work is attempted, so an oversized or truncated
// frame is rejected in O(1) without allocating for its payload.
func Decode(data []byte) (*Message, error) {
	if len(data) > rillcore.MaxMessageSize {
		return nil, &rillcore.NetworkError{Kind: rillcore.MessageTooLarge, Size: len(data), Max: rillcore.MaxMessageSize}
	}
	if len(data) < len(rillcore.MagicBytes)+1 {
		return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "frame too short"}
	}
	for i, b := range rillcore.MagicBytes {
		if data[i] != b {
			return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "bad magic bytes"}
		}
	}

	body := data[len(rillcore.MagicBytes):]
	kind := MessageKind(body[0])
	rest := body[1:]

	var m Message
	m.Kind = kind
	switch kind {
	case KindNewBlock:
		b, err := rillcore.DecodeBlock(rest)
		if err != nil {
			return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: err.Error()}
		}
		m.Block = b
	case KindNewTransaction:
		tx, err := rillcore.DecodeTransaction(rest)
		if err != nil {
			return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: err.Error()}
		}
		m.Transaction = tx
	case KindGetBlock:
		if len(rest) != rillcore.HashSize {
			return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "GetBlock payload must be 32 bytes"}
		}
		copy(m.BlockHash[:], rest)
	case KindGetHeaders:
		locator, err := decodeLocator(rest)
		if err != nil {
			return nil, err
		}
		m.Locator = locator
	default:
		return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "unknown message kind"}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func encodeLocator(locator []rillcore.Hash) []byte {
	buf := make([]byte, 4, 4+len(locator)*rillcore.HashSize)
	binary.LittleEndian.PutUint32(buf, uint32(len(locator)))
	for _, h := range locator {
		buf = append(buf, h[:]...)
	}
	return buf
}

func decodeLocator(data []byte) ([]rillcore.Hash, error) {
	if len(data) < 4 {
		return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "locator count truncated"}
	}
	count := binary.LittleEndian.Uint32(data[:4])
	// Reject an oversized locator count before allocating a slice for
	// it, so a malicious peer cannot force a large allocation from a
	// 4-byte count field alone.
	if count > rillcore.MaxLocatorSize {
		return nil, &rillcore.NetworkError{Kind: rillcore.LocatorTooLarge, Size: int(count), Max: rillcore.MaxLocatorSize}
	}
	rest := data[4:]
	if len(rest) != int(count)*rillcore.HashSize {
		return nil, &rillcore.NetworkError{Kind: rillcore.MalformedMessage, Msg: "locator payload size mismatch"}
	}
	out := make([]rillcore.Hash, count)
	for i := range out {
		copy(out[i][:], rest[i*rillcore.HashSize:(i+1)*rillcore.HashSize])
	}
	return out, nil
}

