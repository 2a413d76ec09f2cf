package cryptoutil

/**
 * Crypto primitives shared by the wallet and transaction packages: SHA-256,
 * RIPEMD-160, and Base58Check, the same building blocks Bitcoin-style
 * addresses are built from.
 */

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

const (
	addressVersion = byte(0x00)
	checksumLength = 4
)

// Sha256 returns the raw 32-byte SHA-256 digest of data.
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Sha256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	return hex.EncodeToString(Sha256(data))
}

// Hash160 computes RIPEMD160(SHA256(data)), the "public key hash" used to
// lock outputs to an address.
func Hash160(data []byte) []byte {
	first := sha256.Sum256(data)
	hasher := ripemd160.New()
	hasher.Write(first[:])
	return hasher.Sum(nil)
}

// Checksum returns the first checksumLength bytes of SHA256(SHA256(payload)).
func Checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}

// AddressFromPubKeyHash builds a Base58Check address from a 20-byte
// public-key hash: version ‖ pubKeyHash ‖ checksum(version ‖ pubKeyHash).
func AddressFromPubKeyHash(pubKeyHash []byte) string {
	versioned := append([]byte{addressVersion}, pubKeyHash...)
	checksum := Checksum(versioned)
	full := append(versioned, checksum...)
	return base58.Encode(full)
}

// AddressFromPubKey derives a Base58Check address directly from a serialized
// secp256k1 public key (the 33-byte compressed form KeyPair carries).
func AddressFromPubKey(pubKey []byte) string {
	return AddressFromPubKeyHash(Hash160(pubKey))
}

// DecodeAddress reverses AddressFromPubKeyHash, validating the checksum.
// Returns the 20-byte public-key hash on success.
func DecodeAddress(address string) ([]byte, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 1+20+checksumLength {
		return nil, errInvalidAddressLength
	}
	version := decoded[0]
	pubKeyHash := decoded[1:21]
	wantChecksum := decoded[21:]
	gotChecksum := Checksum(decoded[:21])
	if !bytes.Equal(wantChecksum, gotChecksum) {
		return nil, errInvalidAddressChecksum
	}
	if version != addressVersion {
		return nil, errInvalidAddressVersion
	}
	return pubKeyHash, nil
}

// ValidateAddress reports whether address is a well-formed, checksum-valid
// Base58Check address for this chain.
func ValidateAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}
