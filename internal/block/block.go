// Package block implements the chain's unit of work: constructing a block
// from pending transactions, computing its Merkle root and header hash, and
// mining or validating its proof of work.
package block

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/quantumlabs/quantumchain/internal/chainerr"
	"github.com/quantumlabs/quantumchain/internal/txutil"
)

// Block is a batch of transactions chained to its predecessor by hash and
// anchored by a proof of work. Unlike the teacher's gob-serialized Block,
// every field here round-trips through JSON so the same struct can be
// persisted, hashed, and sent over the wire.
type Block struct {
	Index        int                  `json:"index"`
	Timestamp    float64              `json:"timestamp"`
	Transactions []txutil.Transaction `json:"transactions"`
	PreviousHash string               `json:"previous_hash"`
	Nonce        int                  `json:"nonce"`
	MerkleRoot   string               `json:"merkle_root"`
	Hash         string               `json:"hash"`
}

// headerPreimage is the signature-free, transaction-free projection of a
// block hashed to produce Hash. Field order is alphabetical so that
// json.Marshal's fixed struct-field encoding matches what a
// sort_keys=True JSON dump would have produced.
type headerPreimage struct {
	Index        int     `json:"index"`
	MerkleRoot   string  `json:"merkle_root"`
	Nonce        int     `json:"nonce"`
	PreviousHash string  `json:"previous_hash"`
	Timestamp    float64 `json:"timestamp"`
}

// New builds a block from its transactions and previous hash, computing the
// Merkle root and an initial (unmined) hash at nonce 0. Call Mine to find a
// nonce satisfying a difficulty target before appending it to a chain.
func New(index int, timestamp float64, txs []txutil.Transaction, previousHash string) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: txs,
		PreviousHash: previousHash,
		Nonce:        0,
	}
	b.MerkleRoot = merkleRoot(txs)
	b.Hash = b.computeHash()
	return b
}

// merkleRoot folds transaction ids pairwise into a single root hash,
// duplicating the last hash at each level that has an odd count. An empty
// transaction list's root is the hash of the empty string, matching the
// convention a genesis block with no transactions needs.
func merkleRoot(txs []txutil.Transaction) string {
	if len(txs) == 0 {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:])
	}
	level := make([]string, len(txs))
	for i, tx := range txs {
		level[i] = tx.Txid
	}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			sum := sha256.Sum256([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}
	return level[0]
}

// computeHash hashes the block's header preimage: index, Merkle root,
// nonce, previous hash, and timestamp. Transactions themselves are not part
// of the preimage — they are already summarized by the Merkle root.
func (b *Block) computeHash() string {
	preimage := headerPreimage{
		Index:        b.Index,
		MerkleRoot:   b.MerkleRoot,
		Nonce:        b.Nonce,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
	}
	encoded, err := json.Marshal(preimage)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Mine searches for a nonce whose resulting hash has difficulty leading hex
// zeros, polling cancel every 4096 iterations so a caller can abort a stale
// mining attempt (e.g. a peer's block arrived first). Returns false if
// cancelled before a solution was found; the block is left with whatever
// nonce/hash it had at the point of cancellation.
func (b *Block) Mine(difficulty int, cancel func() bool) bool {
	prefix := leadingZeroPrefix(difficulty)
	const pollEvery = 4096
	for i := 0; ; i++ {
		if i%pollEvery == 0 && cancel != nil && cancel() {
			return false
		}
		b.Hash = b.computeHash()
		if hasPrefix(b.Hash, prefix) {
			return true
		}
		b.Nonce++
	}
}

// Validate checks that a block's stored Merkle root and hash are consistent
// with its own fields, and that its hash meets expectedDifficulty. It does
// not check linkage to a previous block or to chain-wide rules — that is
// the engine's job.
func (b *Block) Validate(expectedDifficulty int) error {
	if merkleRoot(b.Transactions) != b.MerkleRoot {
		return chainerr.ErrBadMerkleRoot
	}
	if b.computeHash() != b.Hash {
		return chainerr.ErrBadBlockHash
	}
	if !hasPrefix(b.Hash, leadingZeroPrefix(expectedDifficulty)) {
		return chainerr.ErrBadPoW
	}
	return nil
}

func leadingZeroPrefix(difficulty int) string {
	if difficulty <= 0 {
		return ""
	}
	buf := make([]byte, difficulty)
	for i := range buf {
		buf[i] = '0'
	}
	return string(buf)
}

func hasPrefix(hash, prefix string) bool {
	if len(hash) < len(prefix) {
		return false
	}
	return hash[:len(prefix)] == prefix
}
