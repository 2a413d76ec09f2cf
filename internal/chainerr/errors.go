// Package chainerr collects the sentinel error values shared across the
// consensus engine, wallet, and peer-to-peer packages. Call sites return
// these values unwrapped, so callers compare them with errors.Is.
package chainerr

import "errors"

// Transaction validation failures (spec.md §4.1, §7 "validation").
var (
	ErrBadReference     = errors.New("referenced utxo missing or already spent")
	ErrAddressMismatch  = errors.New("public key does not hash to referenced address")
	ErrBadSignature     = errors.New("signature verification failed")
	ErrMalformed        = errors.New("transaction is malformed")
	ErrNegativeAmount   = errors.New("output amount must not be negative")
	ErrValueNotConserved = errors.New("sum of inputs does not equal sum of outputs")
)

// Block / chain validation failures.
var (
	ErrBadMerkleRoot  = errors.New("merkle root does not match transactions")
	ErrBadBlockHash   = errors.New("block hash does not match header")
	ErrBadPoW         = errors.New("block hash does not satisfy difficulty target")
	ErrBadPrevHash    = errors.New("previous hash does not match tip")
	ErrBadTimestamp   = errors.New("block timestamp violates timestamp rule")
	ErrBadIndex       = errors.New("block index is not sequential")
	ErrChainTooShort  = errors.New("candidate chain is not strictly longer than current chain")
	ErrChainInvalid   = errors.New("candidate chain does not validate")
)

// Network / resource failures ("resource" kind in spec.md §7).
var (
	ErrShortRead          = errors.New("short read from peer connection")
	ErrBadFraming         = errors.New("malformed message framing")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// User-facing failures ("user" kind in spec.md §7).
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrWalletNotFound    = errors.New("wallet not found for address")
)

// Persistence failures ("persistence" kind in spec.md §7).
var (
	ErrPersistenceUnavailable = errors.New("persistence adapter unavailable")
)
