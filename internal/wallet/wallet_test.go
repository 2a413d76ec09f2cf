package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumlabs/quantumchain/internal/cryptoutil"
	"github.com/quantumlabs/quantumchain/internal/txutil"
)

func TestNewWalletHasValidAddress(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	require.True(t, cryptoutil.ValidateAddress(w.Address()))
}

func TestExportImportRoundTripsToSameAddress(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	restored, err := ImportPrivateKey(w.ExportPrivateKey())
	require.NoError(t, err)
	require.Equal(t, w.Address(), restored.Address())
	require.Equal(t, w.PublicKeyHex(), restored.PublicKeyHex())
}

func TestImportPrivateKeyRejectsMalformedHex(t *testing.T) {
	_, err := ImportPrivateKey("not-hex")
	require.Error(t, err)
}

func TestSignProducesVerifiableTransaction(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	prevOut := txutil.TxOutput{Address: w.Address(), Amount: 10}
	tx, err := txutil.New(
		[]txutil.TxInput{{Txid: "prevtx", Vout: 0}},
		[]txutil.TxOutput{{Address: "someone-else", Amount: 10}},
		1000,
	)
	require.NoError(t, err)

	w.Sign(tx)

	lookup := fakeLookup{{"prevtx", 0}: prevOut}
	require.NoError(t, tx.Verify(lookup))
}

type lookupKey struct {
	txid string
	vout int
}

type fakeLookup map[lookupKey]txutil.TxOutput

func (f fakeLookup) Lookup(txid string, vout int) (txutil.TxOutput, bool) {
	out, ok := f[lookupKey{txid, vout}]
	return out, ok
}
