package kvstore

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// Bolt is the durable KVStore implementation, one bbolt database file per
// server instance. Concurrent writers (multiple dispatcher workers) are
// safe: bbolt serializes writer transactions internally, giving
// last-writer-wins semantics at the key level, which is all §5 requires.
type Bolt struct {
	id        string
	namespace string
	db        *bbolt.DB
}

// OpenBolt opens (creating if absent) the database at path.
func OpenBolt(path, id, namespace string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening kv store at %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing kv store bucket: %w", err)
	}
	return &Bolt{id: id, namespace: namespace, db: db}, nil
}

func (b *Bolt) ID() string { return b.id }

func (b *Bolt) SetKey(key, value string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("kv store put %q: %w", key, err)
	}
	return nil
}

func (b *Bolt) GetKey(key string) (string, bool, error) {
	var value string
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketEntries).Get([]byte(key))
		if v != nil {
			found = true
			value = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("kv store get %q: %w", key, err)
	}
	return value, found, nil
}

func (b *Bolt) PrependNamespace(key string) string {
	return NamespaceKey(b.namespace, key)
}

func (b *Bolt) Close() error { return b.db.Close() }
