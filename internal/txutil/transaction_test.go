package txutil

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumlabs/quantumchain/internal/chainerr"
	"github.com/quantumlabs/quantumchain/internal/cryptoutil"
)

type fakeLookup map[string]TxOutput

func (f fakeLookup) Lookup(txid string, vout int) (TxOutput, bool) {
	out, ok := f[key(txid, vout)]
	return out, ok
}

func key(txid string, vout int) string {
	return txid + ":" + string(rune('0'+vout))
}

func TestTxidStableAcrossSigning(t *testing.T) {
	tx, err := New([]TxInput{{Txid: "aa", Vout: 0, PubKey: "bb"}}, []TxOutput{{Address: "addr", Amount: 1}}, 100)
	require.NoError(t, err)
	before := tx.Txid

	tx.Inputs[0].Signature = "deadbeef"
	after := tx.computeTxid()
	require.Equal(t, before, after, "attaching a signature must not change the txid")
}

func TestNewRejectsNegativeAmount(t *testing.T) {
	_, err := New(nil, []TxOutput{{Address: "a", Amount: -1}}, 0)
	require.ErrorIs(t, err, chainerr.ErrNegativeAmount)
}

func TestCoinbaseIsExemptFromVerification(t *testing.T) {
	tx := NewCoinbase("miner", 10.2, 1)
	require.True(t, tx.IsCoinbase())
	require.NoError(t, tx.Verify(fakeLookup{}))
}

func TestVerifySignedTransaction(t *testing.T) {
	kp, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	address := cryptoutil.AddressFromPubKey(kp.Public)

	lookup := fakeLookup{
		key("prevtx", 0): {Address: address, Amount: 5},
	}

	tx, err := New(
		[]TxInput{{Txid: "prevtx", Vout: 0, PubKey: hex.EncodeToString(kp.Public)}},
		[]TxOutput{{Address: "recipient", Amount: 5}},
		42,
	)
	require.NoError(t, err)

	digest, err := hex.DecodeString(tx.Txid)
	require.NoError(t, err)
	sig := cryptoutil.SignHex(kp.Private, digest)
	tx.Inputs[0].Signature = sig

	require.NoError(t, tx.Verify(lookup))
	require.True(t, tx.ConservesValue(lookup))
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	kp, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	address := cryptoutil.AddressFromPubKey(kp.Public)

	lookup := fakeLookup{
		key("prevtx", 0): {Address: address, Amount: 5},
	}

	tx, err := New(
		[]TxInput{{Txid: "prevtx", Vout: 0, PubKey: hex.EncodeToString(kp.Public), Signature: "00"}},
		[]TxOutput{{Address: "recipient", Amount: 5}},
		42,
	)
	require.NoError(t, err)

	require.ErrorIs(t, tx.Verify(lookup), chainerr.ErrBadSignature)
}

func TestVerifyRejectsMissingReference(t *testing.T) {
	tx, err := New([]TxInput{{Txid: "missing", Vout: 0, PubKey: "aa", Signature: "bb"}}, nil, 0)
	require.NoError(t, err)
	require.ErrorIs(t, tx.Verify(fakeLookup{}), chainerr.ErrBadReference)
}
