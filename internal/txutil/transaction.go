// Package txutil implements the UTXO transaction model: inputs, outputs,
// the signature-independent txid, and signature verification against a
// caller-supplied UTXO lookup.
package txutil

import (
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/quantumlabs/quantumchain/internal/chainerr"
	"github.com/quantumlabs/quantumchain/internal/cryptoutil"
)

// TxOutput is an indivisible unit of value locked to an address.
type TxOutput struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

// TxInput references a prior output by (txid, vout) and carries the
// spender's public key and signature over the referencing transaction's
// txid.
type TxInput struct {
	Txid      string `json:"txid"`
	Vout      int    `json:"vout"`
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature,omitempty"`
}

// Transaction is the unit of value transfer. Txid is the SHA-256 hex digest
// of a canonical, signature-free serialization of {inputs, outputs,
// timestamp} — signatures are deliberately excluded so signing a
// transaction can never change its own id.
type Transaction struct {
	Inputs    []TxInput  `json:"inputs"`
	Outputs   []TxOutput `json:"outputs"`
	Timestamp float64    `json:"timestamp"`
	Txid      string     `json:"txid"`
}

// inputPreimage is the signature-free projection of a TxInput used for
// hashing; signatures are excluded by construction, not by omission of a
// field that happens to be empty. Field order is alphabetical so that
// json.Marshal's fixed struct-field encoding matches what a
// sort_keys=True JSON dump would have produced.
type inputPreimage struct {
	PubKey string `json:"pubkey"`
	Txid   string `json:"txid"`
	Vout   int    `json:"vout"`
}

// txPreimage is likewise ordered alphabetically by field name.
type txPreimage struct {
	Inputs    []inputPreimage `json:"inputs"`
	Outputs   []TxOutput      `json:"outputs"`
	Timestamp float64         `json:"timestamp"`
}

// New constructs a transaction and computes its txid. Negative output
// amounts are rejected as a policy violation (spec.md §4.1 "malformed").
func New(inputs []TxInput, outputs []TxOutput, timestamp float64) (*Transaction, error) {
	for _, out := range outputs {
		if out.Amount < 0 {
			return nil, chainerr.ErrNegativeAmount
		}
	}
	tx := &Transaction{Inputs: inputs, Outputs: outputs, Timestamp: timestamp}
	tx.Txid = tx.computeTxid()
	return tx, nil
}

// NewCoinbase builds the reward-paying transaction that opens a mined
// block. Coinbase transactions have no inputs and are exempt from
// signature checks, but may only be emitted by the miner (enforced by the
// engine, not by this constructor).
func NewCoinbase(to string, reward float64, timestamp float64) *Transaction {
	tx := &Transaction{
		Inputs:    nil,
		Outputs:   []TxOutput{{Address: to, Amount: reward}},
		Timestamp: timestamp,
	}
	tx.Txid = tx.computeTxid()
	return tx
}

// computeTxid hashes the canonical, signature-free preimage. Re-serializing
// a transaction with signatures attached reproduces the same txid, since
// signatures never enter the preimage.
func (tx *Transaction) computeTxid() string {
	in := make([]inputPreimage, len(tx.Inputs))
	for i, input := range tx.Inputs {
		in[i] = inputPreimage{Txid: input.Txid, Vout: input.Vout, PubKey: input.PubKey}
	}
	preimage := txPreimage{Inputs: in, Outputs: tx.Outputs, Timestamp: tx.Timestamp}
	encoded, err := json.Marshal(preimage)
	if err != nil {
		// Transaction fields are all plain JSON-marshalable types; this
		// cannot fail in practice.
		panic(err)
	}
	return cryptoutil.Sha256Hex(encoded)
}

// IsCoinbase reports whether tx has no inputs, i.e. it mints rather than
// spends.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// UTXOLookup is the narrow view into the unspent-output set that
// verification needs. internal/utxo.Set implements this.
type UTXOLookup interface {
	Lookup(txid string, vout int) (TxOutput, bool)
}

// Verify checks every input of a non-coinbase transaction: the referenced
// UTXO must exist, the address derived from the supplied public key must
// match the referenced output's address, and the signature must verify
// against the txid. Coinbase transactions are exempt.
func (tx *Transaction) Verify(lookup UTXOLookup) error {
	if tx.IsCoinbase() {
		return nil
	}
	for _, in := range tx.Inputs {
		ref, ok := lookup.Lookup(in.Txid, in.Vout)
		if !ok {
			return chainerr.ErrBadReference
		}
		pubKeyBytes, err := hex.DecodeString(in.PubKey)
		if err != nil {
			return chainerr.ErrMalformed
		}
		if cryptoutil.AddressFromPubKey(pubKeyBytes) != ref.Address {
			return chainerr.ErrAddressMismatch
		}
		if !cryptoutil.VerifyHex(in.PubKey, tx.Txid, in.Signature) {
			return chainerr.ErrBadSignature
		}
	}
	return nil
}

// ConservesValue reports whether a non-coinbase transaction's outputs sum
// to its inputs' sum, resolved against lookup. Coinbase transactions always
// conserve (they mint by definition).
func (tx *Transaction) ConservesValue(lookup UTXOLookup) bool {
	if tx.IsCoinbase() {
		return true
	}
	var in, out float64
	for _, i := range tx.Inputs {
		ref, ok := lookup.Lookup(i.Txid, i.Vout)
		if !ok {
			return false
		}
		in += ref.Amount
	}
	for _, o := range tx.Outputs {
		out += o.Amount
	}
	const epsilon = 1e-9
	return math.Abs(in-out) < epsilon
}
