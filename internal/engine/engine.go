// Package engine is the blockchain's orchestrator: it owns the chain, the
// UTXO set, and the pending pool behind a single lock, and exposes the
// operations the CLI, P2P node, and mining pool drive it through.
package engine

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/quantumlabs/quantumchain/internal/block"
	"github.com/quantumlabs/quantumchain/internal/chainerr"
	"github.com/quantumlabs/quantumchain/internal/txutil"
	"github.com/quantumlabs/quantumchain/internal/utxo"
	"github.com/quantumlabs/quantumchain/internal/wallet"
)

// Persister is the narrow storage contract the engine depends on. The full
// chain is enough: the UTXO set is always reconstructible by replaying it,
// exactly as the reference implementation's load_from_file does.
type Persister interface {
	Save(blocks []*block.Block) error
	Load() ([]*block.Block, error)
}

// Config carries the tunables spec.md §6 names. Zero values are replaced
// with the documented defaults by Config.withDefaults.
type Config struct {
	BaseDifficulty     int
	DifficultyInterval int
	MiningReward       float64
}

func (c Config) withDefaults() Config {
	if c.BaseDifficulty <= 0 {
		c.BaseDifficulty = 5
	}
	if c.DifficultyInterval <= 0 {
		c.DifficultyInterval = 10
	}
	if c.MiningReward <= 0 {
		c.MiningReward = 10.2
	}
	return c
}

// Engine is the constructor-owned blockchain state: no package-level
// singletons. One Engine instance per running node.
type Engine struct {
	mu sync.RWMutex

	cfg     Config
	chain   []*block.Block
	utxoSet *utxo.Set
	pending []txutil.Transaction

	cancel atomic.Bool

	persist Persister
	log     zerolog.Logger

	now func() float64
}

// New constructs an Engine, loading a persisted chain if the persister has
// one, or minting a genesis block otherwise.
func New(cfg Config, persist Persister, log zerolog.Logger, now func() float64) (*Engine, error) {
	e := &Engine{
		cfg:     cfg.withDefaults(),
		utxoSet: utxo.New(),
		persist: persist,
		log:     log,
		now:     now,
	}

	loaded, err := persist.Load()
	if err != nil {
		return nil, err
	}
	if len(loaded) > 0 {
		e.chain = loaded
		e.utxoSet.Rebuild(transactionsOf(loaded))
		return e, nil
	}

	genesisTx := txutil.NewCoinbase("genesis", 0, now())
	genesis := block.New(0, now(), []txutil.Transaction{*genesisTx}, "0")
	genesis.Mine(e.difficultyLocked(0), nil)
	e.chain = []*block.Block{genesis}
	e.utxoSet.Apply(genesis.Transactions)
	if err := e.persist.Save(e.chain); err != nil {
		e.log.Error().Err(err).Msg("failed to persist genesis block")
	}
	return e, nil
}

// verifyTransactions checks every transaction in txs against scratch and
// returns only the ones that pass: coinbase transactions are admitted
// unconditionally, non-coinbase ones must reference an output scratch still
// considers unspent, carry a signature that verifies against that output's
// address, and conserve value. Each admitted transaction is applied to
// scratch before the next is checked, so a second transaction spending the
// same output a prior one in txs already consumed is rejected as a
// double-spend rather than silently admitted. Rejections are logged; the
// caller decides what to do with a short result (Mine drops them from the
// block, validateLocked fails the whole candidate chain).
func verifyTransactions(txs []txutil.Transaction, scratch *utxo.Set, log zerolog.Logger) []txutil.Transaction {
	valid := make([]txutil.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsCoinbase() {
			if err := tx.Verify(scratch); err != nil {
				log.Warn().Str("txid", tx.Txid).Err(err).Msg("dropping transaction that failed verification")
				continue
			}
			if !tx.ConservesValue(scratch) {
				log.Warn().Str("txid", tx.Txid).Msg("dropping transaction that does not conserve value")
				continue
			}
		}
		valid = append(valid, tx)
		scratch.Apply([]txutil.Transaction{tx})
	}
	return valid
}

func transactionsOf(blocks []*block.Block) [][]txutil.Transaction {
	out := make([][]txutil.Transaction, len(blocks))
	for i, b := range blocks {
		out[i] = b.Transactions
	}
	return out
}

// Difficulty returns the PoW target for the block that would be mined next
// (and, equivalently, the target a block already at that height must
// satisfy): max(1, base + floor(chain_length / difficulty_interval)).
func (e *Engine) Difficulty() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.difficultyLocked(len(e.chain))
}

func (e *Engine) difficultyLocked(chainLength int) int {
	d := e.cfg.BaseDifficulty + chainLength/e.cfg.DifficultyInterval
	if d < 1 {
		d = 1
	}
	return d
}

// difficultyAt returns the PoW target that was in force when the block at
// index was mined — the chain length at that point was index blocks.
func (e *Engine) difficultyAt(index int) int {
	return e.difficultyLocked(index)
}

// ChainLength reports the number of blocks in the current chain.
func (e *Engine) ChainLength() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chain)
}

// BlockAt returns the block at index (the chain's own pointer, not a copy),
// or nil if out of range.
func (e *Engine) BlockAt(index int) *block.Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index < 0 || index >= len(e.chain) {
		return nil
	}
	return e.chain[index]
}

// LatestBlocks returns up to the last n blocks, oldest first.
func (e *Engine) LatestBlocks(n int) []*block.Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n <= 0 || n > len(e.chain) {
		n = len(e.chain)
	}
	start := len(e.chain) - n
	out := make([]*block.Block, n)
	copy(out, e.chain[start:])
	return out
}

// Balance reports address's spendable balance.
func (e *Engine) Balance(address string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.utxoSet.Balance(address)
}

// PendingCount reports the number of transactions awaiting inclusion.
func (e *Engine) PendingCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pending)
}

// SubmitTransaction appends tx to the pending pool if it passes stateless
// checks (non-empty txid, non-negative amounts). The amount check repeats
// txutil.New's because transactions decoded from peers never pass through
// txutil.New. Signature verification is deliberately deferred to block
// admission and UTXO apply, per spec's resolution of the "when should
// submit_transaction verify?" open question. Rejections are logged at warn
// level for operability but do not change accept/reject semantics.
func (e *Engine) SubmitTransaction(tx txutil.Transaction) error {
	if tx.Txid == "" {
		e.log.Warn().Msg("dropping transaction with empty txid")
		return chainerr.ErrMalformed
	}
	for _, out := range tx.Outputs {
		if out.Amount < 0 {
			e.log.Warn().Str("txid", tx.Txid).Msg("dropping transaction with negative output amount")
			return chainerr.ErrNegativeAmount
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, tx)
	return nil
}

// CreateTransaction selects coins from w's address to fund a payment of
// amount to the recipient, signs it, and returns it. Unlike the reference
// implementation's create_transaction (whose `if accumb := acc < amount`
// walrus assignment is a bug: it binds accumb to a bool and silently
// proceeds to build a transaction with a negative change output), this
// returns ErrInsufficientFunds outright when the wallet's spendable total
// falls short.
func (e *Engine) CreateTransaction(w *wallet.Wallet, to string, amount float64) (*txutil.Transaction, error) {
	e.mu.RLock()
	accumulated, chosen, ok := e.utxoSet.Select(w.Address(), amount)
	e.mu.RUnlock()
	if !ok {
		return nil, chainerr.ErrInsufficientFunds
	}

	inputs := make([]txutil.TxInput, len(chosen))
	for i, sel := range chosen {
		inputs[i] = txutil.TxInput{Txid: sel.Txid, Vout: sel.Vout, PubKey: w.PublicKeyHex()}
	}

	outputs := []txutil.TxOutput{{Address: to, Amount: amount}}
	if change := accumulated - amount; change > 0 {
		outputs = append(outputs, txutil.TxOutput{Address: w.Address(), Amount: change})
	}

	tx, err := txutil.New(inputs, outputs, e.now())
	if err != nil {
		return nil, err
	}
	w.Sign(tx)
	return tx, nil
}

// Mine snapshots the pending pool, prepends a coinbase paying rewardAddress,
// solves the current difficulty's PoW, and on success appends the block,
// applies it to the UTXO set, removes the snapshotted transactions from the
// pool (those submitted while mining stay queued), and persists. Returns the
// mined block, or nil with ok=false if mining was cancelled via
// CancelMining before a solution was found.
func (e *Engine) Mine(rewardAddress string) (mined *block.Block, ok bool) {
	e.cancel.Store(false)

	e.mu.RLock()
	pendingSnapshot := make([]txutil.Transaction, len(e.pending))
	copy(pendingSnapshot, e.pending)
	tip := e.chain[len(e.chain)-1]
	height := len(e.chain)
	difficulty := e.difficultyLocked(height)
	scratch := e.utxoSet.Clone()
	e.mu.RUnlock()

	validPending := verifyTransactions(pendingSnapshot, scratch, e.log)

	coinbase := txutil.NewCoinbase(rewardAddress, e.cfg.MiningReward, e.now())
	txs := append([]txutil.Transaction{*coinbase}, validPending...)
	candidate := block.New(height, e.now(), txs, tip.Hash)

	solved := candidate.Mine(difficulty, e.cancel.Load)
	if !solved {
		e.log.Info().Int("height", height).Msg("mining cancelled, pending pool left intact")
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.chain) != height || e.chain[len(e.chain)-1].Hash != tip.Hash {
		// Chain moved under us (a peer's block won the race); discard.
		e.log.Info().Int("height", height).Msg("mining solution superseded by concurrent chain update")
		return nil, false
	}
	e.chain = append(e.chain, candidate)
	e.utxoSet.Apply(candidate.Transactions)
	e.pending = e.pending[len(pendingSnapshot):]
	if err := e.persist.Save(e.chain); err != nil {
		e.log.Error().Err(err).Msg("failed to persist chain after mining")
	}
	return candidate, true
}

// CancelMining requests that an in-flight Mine call abandon its search at
// its next poll.
func (e *Engine) CancelMining() {
	e.cancel.Store(true)
}

// ValidateChain checks every non-genesis block's timestamp, hash, linkage,
// and proof of work, returning the index of the first failing block (or -1
// if the whole chain validates).
func (e *Engine) ValidateChain() (firstFailingIndex int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.validateLocked(e.chain)
}

// validateLocked checks block-level structure (timestamp, hash/PoW,
// linkage) for every non-genesis block, and separately replays every
// block's transactions — genesis included — against a scratch UTXO set
// built up as it goes, so a transaction with a bad signature or one that
// double-spends an output an earlier block (or an earlier transaction in
// the same block) already consumed fails the whole candidate chain.
func (e *Engine) validateLocked(chain []*block.Block) int {
	for i := 1; i < len(chain); i++ {
		cur, prev := chain[i], chain[i-1]
		if !e.timestampValidLocked(chain, i) {
			return i
		}
		if err := cur.Validate(e.difficultyAt(i)); err != nil {
			return i
		}
		if cur.PreviousHash != prev.Hash {
			return i
		}
	}

	scratch := utxo.New()
	for i, cur := range chain {
		valid := verifyTransactions(cur.Transactions, scratch, e.log)
		if len(valid) != len(cur.Transactions) {
			return i
		}
	}
	return -1
}

func (e *Engine) timestampValidLocked(chain []*block.Block, index int) bool {
	b := chain[index]
	if b.Timestamp > e.now()+7200 {
		return false
	}
	if index == 0 {
		return true
	}
	start := index - 11
	if start < 0 {
		start = 0
	}
	times := make([]float64, 0, index-start)
	for i := start; i < index; i++ {
		times = append(times, chain[i].Timestamp)
	}
	return b.Timestamp >= median(times)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// ReplaceChain accepts candidate as the new chain only if it validates and
// is strictly longer than the current chain, atomically swapping state and
// rebuilding the UTXO set on acceptance.
func (e *Engine) ReplaceChain(candidate []*block.Block) error {
	if len(candidate) == 0 || candidate[0].Index != 0 {
		return chainerr.ErrChainInvalid
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(candidate) <= len(e.chain) {
		return chainerr.ErrChainTooShort
	}
	if idx := e.validateLocked(candidate); idx != -1 {
		return chainerr.ErrChainInvalid
	}

	e.chain = candidate
	e.utxoSet.Rebuild(transactionsOf(candidate))
	e.pending = nil
	if err := e.persist.Save(e.chain); err != nil {
		e.log.Error().Err(err).Msg("failed to persist replacement chain")
	}
	return nil
}

// Stats is a read-only snapshot for the optional HTTP façade and P2P
// status exchanges.
type Stats struct {
	ChainLength  int
	Difficulty   int
	PendingCount int
	MiningReward float64
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		ChainLength:  len(e.chain),
		Difficulty:   e.difficultyLocked(len(e.chain)),
		PendingCount: len(e.pending),
		MiningReward: e.cfg.MiningReward,
	}
}

// FullChain returns a copy of the chain slice, for SEND_CHAIN responses.
func (e *Engine) FullChain() []*block.Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*block.Block, len(e.chain))
	copy(out, e.chain)
	return out
}
