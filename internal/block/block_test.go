package block

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumlabs/quantumchain/internal/txutil"
)

func txWithTxid(txid string) txutil.Transaction {
	return txutil.Transaction{Txid: txid}
}

func TestMerkleRootEmptyTransactionsIsHashOfEmpty(t *testing.T) {
	want := sha256.Sum256(nil)
	require.Equal(t, hex.EncodeToString(want[:]), merkleRoot(nil))
}

func TestMerkleRootOddLengthDuplicatesLast(t *testing.T) {
	three := []txutil.Transaction{txWithTxid("a"), txWithTxid("b"), txWithTxid("c")}
	four := []txutil.Transaction{txWithTxid("a"), txWithTxid("b"), txWithTxid("c"), txWithTxid("c")}
	require.Equal(t, merkleRoot(four), merkleRoot(three))
}

func TestMerkleRootIsOrderSensitive(t *testing.T) {
	ab := []txutil.Transaction{txWithTxid("a"), txWithTxid("b")}
	ba := []txutil.Transaction{txWithTxid("b"), txWithTxid("a")}
	require.NotEqual(t, merkleRoot(ab), merkleRoot(ba))
}

func TestNewBlockHashIsReproducible(t *testing.T) {
	b := New(1, 100, []txutil.Transaction{txWithTxid("a")}, "prevhash")
	require.Equal(t, b.computeHash(), b.Hash)

	again := New(1, 100, []txutil.Transaction{txWithTxid("a")}, "prevhash")
	require.Equal(t, b.Hash, again.Hash, "identical inputs must hash identically")
}

func TestMineFindsNonceSatisfyingDifficulty(t *testing.T) {
	b := New(1, 100, nil, "genesis")
	ok := b.Mine(1, nil)
	require.True(t, ok)
	require.True(t, hasPrefix(b.Hash, "0"))
	require.NoError(t, b.Validate(1))
}

func TestMineDifficultyZeroIsTriviallySatisfied(t *testing.T) {
	b := New(1, 100, nil, "genesis")
	ok := b.Mine(0, nil)
	require.True(t, ok)
	require.NoError(t, b.Validate(0))
}

func TestMineRespectsCancel(t *testing.T) {
	b := New(1, 100, nil, "genesis")
	calls := 0
	cancel := func() bool {
		calls++
		return true
	}
	ok := b.Mine(64, cancel)
	require.False(t, ok)
	require.Equal(t, 1, calls)
}

func TestValidateRejectsTamperedMerkleRoot(t *testing.T) {
	b := New(1, 100, []txutil.Transaction{txWithTxid("a")}, "prevhash")
	require.True(t, b.Mine(1, nil))
	b.MerkleRoot = "tampered"
	require.Error(t, b.Validate(1))
}

func TestValidateRejectsTamperedHash(t *testing.T) {
	b := New(1, 100, nil, "genesis")
	require.True(t, b.Mine(1, nil))
	b.Hash = "0000000000000000000000000000000000000000000000000000000000000000"
	require.Error(t, b.Validate(1))
}

func TestValidateRejectsInsufficientDifficulty(t *testing.T) {
	b := New(1, 100, nil, "genesis")
	require.True(t, b.Mine(1, nil))
	require.Error(t, b.Validate(8))
}
