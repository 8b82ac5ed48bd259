// Package filerecord persists the FileRecord entities spec.md §3
// describes, backed by BadgerDB the way the teacher's internal/index
// package persists symbol metadata — key-value with prefix scans, no
// secondary index machinery needed since FileRecord is looked up only by
// canonical path or enumerated in full.
package filerecord

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/codanna/codanna/internal/ids"
)

// Record is one FileRecord (spec.md §3). Records are keyed by canonical
// path, so Store.Put replaces any earlier record for the same path and a
// path maps to at most one live FileID; which FileID that is, reused or
// newly minted, is chosen by the caller.
type Record struct {
	ID         ids.FileID      `json:"id"`
	Path       string          `json:"path"`
	Language   ids.LanguageID  `json:"language"`
	ContentHash string         `json:"content_hash"`
	LastIndexed time.Time      `json:"last_indexed"`
}

const keyPrefix = "file:"

// Store is the badger-backed FileRecord table.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) the badger database rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory store, used by tests and by ephemeral
// query-only CLI invocations that never persist a workspace.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// HashContent computes the content hash FileRecord.ContentHash stores
// and the pipeline compares on re-index to decide whether to skip a file.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func pathKey(path string) []byte {
	return []byte(keyPrefix + path)
}

// Get returns the live record for path, if any.
func (s *Store) Get(ctx context.Context, path string) (*Record, bool, error) {
	var rec Record
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pathKey(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

// Put writes rec, replacing any prior record at the same path. The
// caller (the pipeline) decides FileID reuse-vs-mint before calling Put;
// this store just persists whatever it is given.
func (s *Store) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pathKey(rec.Path), data)
	})
}

// Delete removes the record for path, meaning its FileID is now dead —
// callers must tombstone the FileID's symbols/embeddings before calling
// this, since Store itself has no cross-reference to enforce that.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(pathKey(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// All enumerates every live FileRecord, used by get_index_info and by
// cache-rebuild (the symbol cache is "advisory and never authoritative",
// spec.md §4.H, and can be reconstructed from this plus the document index).
func (s *Store) All(ctx context.Context) ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(keyPrefix)); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			item := it.Item()
			var rec Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	return out, err
}
