package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumlabs/quantumchain/internal/block"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadOnEmptyStoreReturnsNoBlocks(t *testing.T) {
	s := openTestStore(t)
	blocks, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestSaveThenLoadRoundTripsChain(t *testing.T) {
	s := openTestStore(t)
	genesis := block.New(0, 1000, nil, "0")
	genesis.Mine(1, nil)
	next := block.New(1, 1001, nil, genesis.Hash)
	next.Mine(1, nil)

	require.NoError(t, s.Save([]*block.Block{genesis, next}))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, genesis.Hash, loaded[0].Hash)
	require.Equal(t, next.Hash, loaded[1].Hash)
}

func TestSavePrunesBlocksBeyondNewChainLength(t *testing.T) {
	s := openTestStore(t)
	genesis := block.New(0, 1000, nil, "0")
	genesis.Mine(1, nil)
	next := block.New(1, 1001, nil, genesis.Hash)
	next.Mine(1, nil)
	require.NoError(t, s.Save([]*block.Block{genesis, next}))

	require.NoError(t, s.Save([]*block.Block{genesis}))
	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
}

func TestWalletScalarRoundTrip(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LoadWalletScalar("addr1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SaveWalletScalar("addr1", []byte{1, 2, 3}))
	scalar, ok, err := s.LoadWalletScalar("addr1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, scalar)

	addrs, err := s.WalletAddresses()
	require.NoError(t, err)
	require.Contains(t, addrs, "addr1")
}
