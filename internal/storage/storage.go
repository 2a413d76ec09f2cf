// Package storage persists the chain and wallet keys to a badger key-value
// store, the same embedded-database choice the teacher repo's blockchain
// package makes, adapted from its own badger-prefix-keyspace design to the
// engine's in-memory chain model (the chain here is one JSON blob per
// block, not a linked on-disk structure walked by a dedicated iterator).
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/quantumlabs/quantumchain/internal/block"
)

const (
	blockKeyPrefix  = "block-"
	walletKeyPrefix = "wallet-"
)

// Store is a badger-backed Persister plus a wallet-key keyspace sharing the
// same handle, so one --storage-path governs both instead of the teacher's
// separate chain-database and gob wallet file.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a badger database at dir, retrying once on a
// stale LOCK file left by an unclean shutdown — the same recovery the
// teacher's openDB/retry pair performs.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := openWithRetry(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open badger database")
	}
	return &Store{db: db}, nil
}

func openWithRetry(dir string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "LOCK") {
		return nil, err
	}
	lockPath := filepath.Join(dir, "LOCK")
	if rmErr := os.Remove(lockPath); rmErr != nil {
		return nil, errors.Wrapf(err, "stale lock at %s could not be removed: %v", lockPath, rmErr)
	}
	return badger.Open(opts)
}

// Close releases the underlying badger handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(index int) []byte {
	return []byte(blockKeyPrefix + strconv.Itoa(index))
}

// Save overwrites the persisted chain with blocks, one key per index.
// Stale keys past the new chain's length (left over from a chain that
// shrank, e.g. never in normal operation but guarded against regardless)
// are removed in the same transaction.
func (s *Store) Save(blocks []*block.Block) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for i, b := range blocks {
			encoded, err := json.Marshal(b)
			if err != nil {
				return errors.Wrap(err, "storage: marshal block")
			}
			if err := txn.Set(blockKey(i), encoded); err != nil {
				return errors.Wrap(err, "storage: write block")
			}
		}
		return pruneFrom(txn, blockKeyPrefix, len(blocks))
	})
}

// pruneFrom deletes every key under prefix whose numeric suffix is >= from.
func pruneFrom(txn *badger.Txn, prefix string, from int) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	var stale [][]byte
	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		key := it.Item().KeyCopy(nil)
		idxStr := strings.TrimPrefix(string(key), prefix)
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < from {
			continue
		}
		stale = append(stale, key)
	}
	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs the persisted chain in index order. An empty (nil)
// result with a nil error means no chain has been persisted yet — the
// caller mints a genesis block.
func (s *Store) Load() ([]*block.Block, error) {
	var blocks []*block.Block
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(blockKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var b block.Block
				if err := json.Unmarshal(val, &b); err != nil {
					return errors.Wrap(err, "storage: unmarshal block")
				}
				blocks = append(blocks, &b)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })
	return blocks, nil
}

// SaveWalletScalar persists a wallet's raw private-key scalar under its
// address, mirroring the teacher's wallet.Wallets map but keyed into this
// store's shared badger handle instead of a second gob file.
func (s *Store) SaveWalletScalar(address string, scalar []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(walletKeyPrefix+address), scalar)
	})
}

// LoadWalletScalar retrieves a previously saved private-key scalar by
// address. ok is false if no wallet is stored under that address.
func (s *Store) LoadWalletScalar(address string) (scalar []byte, ok bool, err error) {
	txErr := s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(walletKeyPrefix + address))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		ok = true
		return item.Value(func(val []byte) error {
			scalar = append([]byte(nil), val...)
			return nil
		})
	})
	if txErr != nil {
		return nil, false, errors.Wrap(txErr, "storage: load wallet scalar")
	}
	return scalar, ok, nil
}

// WalletAddresses lists every address with a stored wallet key.
func (s *Store) WalletAddresses() ([]string, error) {
	var addresses []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(walletKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().KeyCopy(nil))
			addresses = append(addresses, strings.TrimPrefix(key, walletKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage: list wallet addresses")
	}
	return addresses, nil
}
