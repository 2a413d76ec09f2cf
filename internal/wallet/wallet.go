// Package wallet holds a signing keypair and its derived address, and signs
// transactions on its owner's behalf.
package wallet

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/quantumlabs/quantumchain/internal/chainerr"
	"github.com/quantumlabs/quantumchain/internal/cryptoutil"
	"github.com/quantumlabs/quantumchain/internal/txutil"
)

// Wallet is a secp256k1 keypair plus its Base58Check address. The private
// key is handed out only by ExportPrivateKey, Scalar and PrivateKey.
type Wallet struct {
	keys    *cryptoutil.KeyPair
	address string
}

// New generates a fresh wallet with a random keypair.
func New() (*Wallet, error) {
	kp, err := cryptoutil.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return fromKeyPair(kp), nil
}

// ImportPrivateKey reconstructs a wallet from a hex-encoded 32-byte private
// scalar, following the reference wallet's export_private_key_hex /
// import_private_key_hex pair (present in the original implementation,
// dropped from the distilled spec's prose, supplemented here).
func ImportPrivateKey(scalarHex string) (*Wallet, error) {
	scalar, err := hex.DecodeString(scalarHex)
	if err != nil {
		return nil, chainerr.ErrMalformed
	}
	if len(scalar) != 32 {
		return nil, chainerr.ErrMalformed
	}
	return fromKeyPair(cryptoutil.KeyPairFromScalar(scalar)), nil
}

func fromKeyPair(kp *cryptoutil.KeyPair) *Wallet {
	return &Wallet{keys: kp, address: cryptoutil.AddressFromPubKey(kp.Public)}
}

// Address returns the wallet's Base58Check address.
func (w *Wallet) Address() string {
	return w.address
}

// PublicKeyHex returns the wallet's compressed public key, hex-encoded —
// the form carried in a transaction input's pubkey field.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.keys.Public)
}

// ExportPrivateKey returns the wallet's private scalar, hex-encoded. The
// caller is responsible for keeping the result secret.
func (w *Wallet) ExportPrivateKey() string {
	return hex.EncodeToString(w.keys.Private.Serialize())
}

// Scalar returns the raw 32-byte private key, for persistence by
// internal/storage.
func (w *Wallet) Scalar() []byte {
	return w.keys.Private.Serialize()
}

// PrivateKey exposes the underlying secp256k1 key for callers (tests,
// lower-level signing helpers) that need it directly.
func (w *Wallet) PrivateKey() *secp256k1.PrivateKey {
	return w.keys.Private
}

// Sign signs tx's txid and attaches the resulting signature to every input,
// along with this wallet's public key. Signatures never enter the txid
// preimage, so attaching them leaves the txid unchanged. Public keys do
// enter it, and Sign does not recompute Txid: an input whose PubKey differed
// before signing leaves Txid describing the old key.
func (w *Wallet) Sign(tx *txutil.Transaction) {
	digest, err := hex.DecodeString(tx.Txid)
	if err != nil {
		// Txid is always produced by computeTxid's hex.EncodeToString;
		// a malformed value here means the transaction was built some
		// other way and is a programmer error, not a runtime condition.
		panic(err)
	}
	sigHex := cryptoutil.SignHex(w.keys.Private, digest)
	pubHex := w.PublicKeyHex()
	for i := range tx.Inputs {
		tx.Inputs[i].PubKey = pubHex
		tx.Inputs[i].Signature = sigHex
	}
}
