// Package badgercache provides a persistent Cache backend on BadgerDB.
package badgercache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/collectivefs/collectivefs/pkg/cache"
	"github.com/collectivefs/collectivefs/pkg/storage"
)

// Key Namespace Design
// ====================
//
// BadgerDB is a key-value store, so the cache uses prefixed keys to keep its
// record types apart:
//
//	Data Type        Prefix  Key Format      Value
//	------------------------------------------------------------------
//	Entry by path    "e:"    e:<path>        cache.Entry (JSON)
//	Path by id       "i:"    i:<id BE64>     path (raw bytes)
//	Id sequence      "seq"   seq             uint64 (binary, big endian)
//
// Entries are JSON for debuggability (the same trade the metadata layer
// makes everywhere structured records hit disk); the sequence counter is
// binary because it is a bare integer on the hot path.

const (
	entryPrefix = "e:"
	idPrefix    = "i:"
	seqKey      = "seq"
)

// BadgerCache implements cache.Cache on a BadgerDB database.
//
// Suitable for deployments where cache ids must stay stable across process
// restarts. All mutations run in ACID transactions; the id sequence is
// allocated inside the same transaction as the entry write, so a crash can
// never leave an entry without an id mapping. Event publication is layered
// on with cache.WithEvents, keeping this backend a pure key-value index.
//
// Thread Safety:
// All writes go through db.Update, which badger serializes through its
// commit pipeline, so no additional locking is needed here.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens (or creates) a badger database at path.
func NewBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty for a cache

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %s: %w", path, err)
	}

	return &BadgerCache{db: db}, nil
}

// Close releases the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func entryKey(path string) []byte {
	return append([]byte(entryPrefix), path...)
}

func idKey(id int64) []byte {
	key := make([]byte, len(idPrefix)+8)
	copy(key, idPrefix)
	binary.BigEndian.PutUint64(key[len(idPrefix):], uint64(id))
	return key
}

// Get implements cache.Cache.
func (c *BadgerCache) Get(ctx context.Context, path string) (*cache.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}

	var entry cache.Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.NotFound(path)
		}
		return nil, storage.IOError(path, err)
	}
	return &entry, nil
}

// GetID implements cache.Cache.
func (c *BadgerCache) GetID(ctx context.Context, path string) (int64, error) {
	entry, err := c.Get(ctx, path)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// PathForID resolves an id back to the path it is stored under.
func (c *BadgerCache) PathForID(ctx context.Context, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.IOError("", err)
	}

	var path string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return "", storage.NotFound("")
		}
		return "", storage.IOError("", err)
	}
	return path, nil
}

// nextID allocates the next id inside txn.
func nextID(txn *badger.Txn) (int64, error) {
	var next uint64 = 1
	item, err := txn.Get([]byte(seqKey))
	if err == nil {
		err = item.Value(func(val []byte) error {
			next = binary.BigEndian.Uint64(val) + 1
			return nil
		})
		if err != nil {
			return 0, err
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := txn.Set([]byte(seqKey), buf); err != nil {
		return 0, err
	}
	return int64(next), nil
}

// Insert implements cache.Cache.
func (c *BadgerCache) Insert(ctx context.Context, path string, attrs cache.Attributes) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.IOError(path, err)
	}

	var id int64
	err := c.db.Update(func(txn *badger.Txn) error {
		// Re-inserting an existing path keeps its id.
		item, err := txn.Get(entryKey(path))
		switch err {
		case nil:
			var existing cache.Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			id = existing.ID
		case badger.ErrKeyNotFound:
			id, err = nextID(txn)
			if err != nil {
				return err
			}
		default:
			return err
		}

		entry := cache.Entry{
			ID:       id,
			Path:     path,
			Size:     attrs.Size,
			MTime:    attrs.MTime,
			Etag:     attrs.Etag,
			Mimetype: attrs.Mimetype,
		}
		val, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		if err := txn.Set(entryKey(path), val); err != nil {
			return err
		}
		return txn.Set(idKey(id), []byte(path))
	})
	if err != nil {
		return 0, storage.IOError(path, err)
	}
	return id, nil
}

// Update implements cache.Cache.
func (c *BadgerCache) Update(ctx context.Context, id int64, attrs cache.Attributes) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError("", err)
	}

	var path string
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			path = string(val)
			return nil
		}); err != nil {
			return err
		}

		entry := cache.Entry{
			ID:       id,
			Path:     path,
			Size:     attrs.Size,
			MTime:    attrs.MTime,
			Etag:     attrs.Etag,
			Mimetype: attrs.Mimetype,
		}
		val, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		return txn.Set(entryKey(path), val)
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storage.NotFound("")
		}
		return storage.IOError(path, err)
	}
	return nil
}
