package repositories

import (
	"chat-pulse/errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

// Records are stored as CBOR. Keys are plain prefixes so a prefix scan gives
// the natural ordering of each collection.

func set(txn *badger.Txn, key string, record any) error {
	bytes, err := cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), bytes)
}

func get[T any](txn *badger.Txn, key string) (T, error) {
	var record T
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record, fmt.Errorf("%w: %s", errors.ErrNotFound, key)
	}
	if err != nil {
		return record, err
	}
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &record)
	})
	return record, err
}

// scan decodes every record under prefix in key order.
func scan[T any](txn *badger.Txn, prefix string, fn func(key string, record T) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		var record T
		if err := item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &record)
		}); err != nil {
			return err
		}
		if err := fn(string(item.KeyCopy(nil)), record); err != nil {
			return err
		}
	}
	return nil
}

// scopeKey builds the prefix "ns:<len>:<id>:" of a per-owner collection.
// The length makes the prefix of one id never a prefix of another, so ids
// containing ':' ("dm:alice:bob") cannot leak into each other's scans.
func scopeKey(ns, id string) string {
	return fmt.Sprintf("%s:%d:%s:", ns, len(id), id)
}

// timeKey keeps lexicographic order equal to chronological order.
func timeKey(unixNano int64) string {
	return fmt.Sprintf("%019d", unixNano)
}

// Dump walks every record under prefix without knowing its type. Used by the
// inspection tool.
func Dump(db *badger.DB, prefix string, fn func(key string, record map[string]any) error) error {
	return db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix, fn)
	})
}
