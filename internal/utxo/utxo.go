// Package utxo tracks the set of unspent transaction outputs: the balances
// a chain's history has produced and not yet consumed.
package utxo

import "github.com/quantumlabs/quantumchain/internal/txutil"

// entry is a single output slot. spent set to true marks a consumed slot,
// mirroring the reference implementation's "set to None" sentinel.
type entry struct {
	out   txutil.TxOutput
	spent bool
}

// Set is the engine's mutable view of which outputs are still spendable.
// It is not internally synchronized: callers (internal/engine) guard all
// access with their own lock, matching the single-exclusive-lock
// concurrency model the rest of the chain state follows.
type Set struct {
	order   []string
	outputs map[string][]entry
}

// New returns an empty UTXO set.
func New() *Set {
	return &Set{outputs: make(map[string][]entry)}
}

// Selected is one output chosen to fund a new transaction's inputs.
type Selected struct {
	Txid   string
	Vout   int
	Output txutil.TxOutput
}

// Apply folds one block's transactions into the set, one transaction at a
// time: its inputs spend their referenced outputs, then its outputs become
// newly unspent under its txid. Order matters only within a block's own
// transaction list; Apply does not itself validate that inputs reference
// outputs created earlier in the same block or an earlier block — that is
// the engine's responsibility before Apply is called.
func (s *Set) Apply(txs []txutil.Transaction) {
	for _, tx := range txs {
		for _, in := range tx.Inputs {
			slots, ok := s.outputs[in.Txid]
			if !ok || in.Vout < 0 || in.Vout >= len(slots) {
				continue
			}
			slots[in.Vout].spent = true
		}
		slots := make([]entry, len(tx.Outputs))
		for i, out := range tx.Outputs {
			slots[i] = entry{out: out}
		}
		if _, exists := s.outputs[tx.Txid]; !exists {
			s.order = append(s.order, tx.Txid)
		}
		s.outputs[tx.Txid] = slots
	}
}

// Lookup implements txutil.UTXOLookup: it reports the output at (txid,
// vout) only if it exists and has not been spent.
func (s *Set) Lookup(txid string, vout int) (txutil.TxOutput, bool) {
	slots, ok := s.outputs[txid]
	if !ok || vout < 0 || vout >= len(slots) {
		return txutil.TxOutput{}, false
	}
	if slots[vout].spent {
		return txutil.TxOutput{}, false
	}
	return slots[vout].out, true
}

// Balance sums every live output locked to address.
func (s *Set) Balance(address string) float64 {
	var total float64
	for _, slots := range s.outputs {
		for _, e := range slots {
			if !e.spent && e.out.Address == address {
				total += e.out.Amount
			}
		}
	}
	return total
}

// Select greedily gathers live outputs locked to address, in the order
// their transactions first entered the set, until their sum reaches amount
// or the set is exhausted. The returned bool reports whether amount was
// reached; the accumulated total and partial selection are still returned
// on failure so a caller can report how far short the wallet fell.
func (s *Set) Select(address string, amount float64) (float64, []Selected, bool) {
	var accumulated float64
	var chosen []Selected
	for _, txid := range s.order {
		for vout, e := range s.outputs[txid] {
			if e.spent || e.out.Address != address {
				continue
			}
			chosen = append(chosen, Selected{Txid: txid, Vout: vout, Output: e.out})
			accumulated += e.out.Amount
			if accumulated >= amount {
				return accumulated, chosen, true
			}
		}
	}
	return accumulated, chosen, false
}

// Clone returns an independent copy of s: mutating the result (via Apply)
// never affects s. Used to simulate applying a batch of candidate
// transactions before committing them to the real set.
func (s *Set) Clone() *Set {
	clone := &Set{
		order:   append([]string(nil), s.order...),
		outputs: make(map[string][]entry, len(s.outputs)),
	}
	for txid, slots := range s.outputs {
		clone.outputs[txid] = append([]entry(nil), slots...)
	}
	return clone
}

// Reset discards all tracked outputs, returning the set to empty.
func (s *Set) Reset() {
	s.order = nil
	s.outputs = make(map[string][]entry)
}

// Rebuild resets the set and replays every block's transactions in order,
// used after accepting a replacement chain from a peer.
func (s *Set) Rebuild(blocksTxs [][]txutil.Transaction) {
	s.Reset()
	for _, txs := range blocksTxs {
		s.Apply(txs)
	}
}
