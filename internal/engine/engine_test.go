package engine

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/quantumlabs/quantumchain/internal/block"
	"github.com/quantumlabs/quantumchain/internal/wallet"
)

// memPersister is an in-memory stand-in for internal/storage in tests.
type memPersister struct {
	blocks []*block.Block
}

func (m *memPersister) Save(blocks []*block.Block) error {
	m.blocks = blocks
	return nil
}

func (m *memPersister) Load() ([]*block.Block, error) {
	return m.blocks, nil
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func clockAt(t float64) func() float64 {
	return func() float64 { return t }
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *float64) {
	t.Helper()
	clock := 1_700_000_000.0
	e, err := New(cfg, &memPersister{}, discardLogger(), func() float64 { return clock })
	require.NoError(t, err)
	return e, &clock
}

func TestGenesisChainHasZeroBalance(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1})
	require.Equal(t, 1, e.ChainLength())
	require.Equal(t, -1, e.ValidateChain())
	require.Equal(t, 0.0, e.Balance("anyone"))
}

func TestMineOneBlockCreditsReward(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1, MiningReward: 10.2})
	mined, ok := e.Mine("alice")
	require.True(t, ok)
	require.Equal(t, 1, mined.Index)
	require.Equal(t, 2, e.ChainLength())
	require.Equal(t, 10.2, e.Balance("alice"))
}

func TestSignedTransferMovesBalance(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1, MiningReward: 10})
	w, err := wallet.New()
	require.NoError(t, err)

	_, ok := e.Mine(w.Address())
	require.True(t, ok)
	require.Equal(t, 10.0, e.Balance(w.Address()))

	recipient, err := wallet.New()
	require.NoError(t, err)

	tx, err := e.CreateTransaction(w, recipient.Address(), 4)
	require.NoError(t, err)
	require.NoError(t, e.SubmitTransaction(*tx))

	_, ok = e.Mine(w.Address())
	require.True(t, ok)

	require.Equal(t, 4.0, e.Balance(recipient.Address()))
	require.Equal(t, 6.0+10.0, e.Balance(w.Address()))
}

func TestCreateTransactionFailsOnInsufficientFunds(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1})
	w, err := wallet.New()
	require.NoError(t, err)

	_, err = e.CreateTransaction(w, "someone", 1000)
	require.Error(t, err)
}

func TestChainReplacementRejectsShorterOrEqual(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1})
	_, ok := e.Mine("alice")
	require.True(t, ok)

	require.Error(t, e.ReplaceChain(e.FullChain()[:1]))
	require.Error(t, e.ReplaceChain(e.FullChain()))
}

func TestChainReplacementAcceptsLongerValidChain(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1})
	_, ok := e.Mine("alice")
	require.True(t, ok)
	before := e.FullChain()

	// Node Y mines one further block on top of the same history.
	_, ok = e.Mine("alice")
	require.True(t, ok)
	longer := e.FullChain()
	require.Greater(t, len(longer), len(before))

	e2, _ := newTestEngine(t, Config{BaseDifficulty: 1})
	require.NoError(t, e2.ReplaceChain(longer))
	require.Equal(t, len(longer), e2.ChainLength())
	require.Equal(t, e.Balance("alice"), e2.Balance("alice"))
}

func TestDifficultyIncreasesAtIntervalBoundary(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1, DifficultyInterval: 2})
	require.Equal(t, 1, e.difficultyLocked(0))
	require.Equal(t, 1, e.difficultyLocked(1))
	require.Equal(t, 2, e.difficultyLocked(2))
	require.Equal(t, 2, e.difficultyLocked(3))
	require.Equal(t, 3, e.difficultyLocked(4))
}

func TestValidateChainCatchesTamperedBlock(t *testing.T) {
	e, _ := newTestEngine(t, Config{BaseDifficulty: 1})
	_, ok := e.Mine("alice")
	require.True(t, ok)

	e.chain[1].Hash = "not-a-real-hash"
	require.Equal(t, 1, e.ValidateChain())
}
