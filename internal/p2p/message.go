// Package p2p implements the gossip protocol nodes use to exchange chains,
// blocks, transactions, and peer addresses.
package p2p

import (
	"encoding/json"

	"github.com/quantumlabs/quantumchain/internal/chainerr"
)

// MessageType tags the payload carried by a Message. A plain string enum
// with an exhaustive switch at dispatch time, rather than per-type structs
// routed by reflection — unknown types are a hard error, not silently
// dropped.
type MessageType string

const (
	RequestChain   MessageType = "REQUEST_CHAIN"
	SendChain      MessageType = "SEND_CHAIN"
	NewBlock       MessageType = "NEW_BLOCK"
	NewTransaction MessageType = "NEW_TRANSACTION"
	RequestPeers   MessageType = "REQUEST_PEERS"
	SendPeers      MessageType = "SEND_PEERS"
	Ping           MessageType = "PING"
	Pong           MessageType = "PONG"
)

// Message is the wire envelope for every gossip exchange: a type tag, raw
// JSON payload (shape depends on Type), and a timestamp. Keeping Data as
// json.RawMessage defers payload decoding to each handler, which knows what
// shape to expect for its own type.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
}

// NewMessage marshals payload into a Message of the given type.
func NewMessage(t MessageType, payload any, timestamp float64) (Message, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Data: encoded, Timestamp: timestamp}, nil
}

// valid reports whether t is one of the eight recognized message types.
func (t MessageType) valid() bool {
	switch t {
	case RequestChain, SendChain, NewBlock, NewTransaction, RequestPeers, SendPeers, Ping, Pong:
		return true
	default:
		return false
	}
}

// Validate checks that m carries a recognized type.
func (m Message) Validate() error {
	if !m.Type.valid() {
		return chainerr.ErrUnknownMessageType
	}
	return nil
}
