package cryptoutil

/**
 * secp256k1 keypair generation and ECDSA signing, replacing the P-256 toy
 * curve the tutorial this package is descended from used. Bitcoin and every
 * coin in this lineage sign with secp256k1, so this is the one place
 * SPEC_FULL.md corrects a teacher simplification.
 */

import (
	"crypto/rand"
	"encoding/asn1"
	"encoding/hex"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// KeyPair is a secp256k1 private scalar plus its derived compressed public
// key (33 bytes: a parity-prefixed X coordinate).
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Public  []byte
}

// GenerateKeyPair creates a fresh secp256k1 keypair using a CSPRNG.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: priv.PubKey().SerializeCompressed()}, nil
}

// KeyPairFromScalar reconstructs a keypair from a 32-byte private scalar,
// used when loading a wallet from disk or importing an exported key.
func KeyPairFromScalar(scalar []byte) *KeyPair {
	priv := secp256k1.PrivKeyFromBytes(scalar)
	return &KeyPair{Private: priv, Public: priv.PubKey().SerializeCompressed()}
}

// derSignature mirrors the ASN.1 SEQUENCE{INTEGER r, INTEGER s} that
// ecdsa.Signature.Serialize produces — the only path the v4 package exposes
// to reach r and s, which are unexported fields with no accessor methods.
type derSignature struct {
	R, S *big.Int
}

// Sign produces a fixed-length 64-byte ECDSA signature (32-byte r ‖ 32-byte
// s) over an arbitrary message hash. Raw r‖s rather than DER, matching the
// format the reference wallet's signing library emits by default; r and s
// are recovered from the library's DER serialization since that's the only
// supported way to reach them.
func Sign(priv *secp256k1.PrivateKey, hash []byte) []byte {
	sig := ecdsa.Sign(priv, hash)
	var parsed derSignature
	if _, err := asn1.Unmarshal(sig.Serialize(), &parsed); err != nil {
		// The library's own DER output always parses as the
		// SEQUENCE{INTEGER,INTEGER} it was just serialized from.
		panic(err)
	}
	out := make([]byte, 64)
	parsed.R.FillBytes(out[:32])
	parsed.S.FillBytes(out[32:])
	return out
}

// SignHex is Sign, hex-encoding the result for wire/storage use.
func SignHex(priv *secp256k1.PrivateKey, hash []byte) string {
	return hex.EncodeToString(Sign(priv, hash))
}

// Verify checks a raw 64-byte (r‖s) ECDSA signature against a message hash
// and a compressed secp256k1 public key (33 bytes).
func Verify(pubKey []byte, hash []byte, signature []byte) bool {
	if len(signature) != 64 {
		return false
	}
	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	der, err := asn1.Marshal(derSignature{
		R: new(big.Int).SetBytes(signature[:32]),
		S: new(big.Int).SetBytes(signature[32:]),
	})
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pk)
}

// VerifyHex is Verify taking hex-encoded public key, hash, and signature,
// the representation transactions carry over the wire.
func VerifyHex(pubKeyHex, hashHex, signatureHex string) bool {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	return Verify(pubKey, hashBytes, sig)
}

// RandomNonce returns n cryptographically random bytes, suitable for opaque
// liveness-probe payloads (PING/PONG); no package in this module calls it.
func RandomNonce(n int) []byte {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return buf
}
