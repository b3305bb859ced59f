package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

const bucketSettings = "settings"

var ErrKeyNotFound = fmt.Errorf("key not found")

// Entry is a single saved setting value.
type Entry struct {
	Value any
}

// Bucket wraps a bolt.Bucket, encoding values with msgpack.
// A nil underlying bucket behaves as an empty, read-only bucket.
type Bucket[V any] struct {
	bucket *bolt.Bucket
}

func (b *Bucket[V]) Get(key string) (*V, error) {
	if b.bucket == nil {
		return nil, ErrKeyNotFound
	}

	bytes := b.bucket.Get([]byte(key))
	if bytes == nil {
		return nil, ErrKeyNotFound
	}

	var value V
	if err := msgpack.Unmarshal(bytes, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry for key '%v': %w", key, err)
	}

	return &value, nil
}

func (b *Bucket[V]) Put(key string, value *V) error {
	if bytes, err := msgpack.Marshal(value); err != nil {
		return fmt.Errorf("failed to marshal entry for key %v: %w", key, err)
	} else if err = b.bucket.Put([]byte(key), bytes); err != nil {
		return fmt.Errorf("failed to put entry for key %v: %w", key, err)
	}

	return nil
}

func (b *Bucket[V]) Delete(key string) error {
	return b.bucket.Delete([]byte(key))
}

func (b *Bucket[V]) DeleteAll() error {
	// collect first, deleting under a cursor skips entries
	var keys [][]byte

	c := b.bucket.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}

	for _, k := range keys {
		if err := b.bucket.Delete(k); err != nil {
			return fmt.Errorf("failed to remove entry for key %s: %w", string(k), err)
		}
	}

	return nil
}

func (b *Bucket[V]) ForEach(f func(string, *V) error) error {
	if b.bucket == nil {
		return nil
	}

	return b.bucket.ForEach(func(key, bytes []byte) error {
		var value V
		if err := msgpack.Unmarshal(bytes, &value); err != nil {
			return fmt.Errorf("failed to unmarshal entry for key '%v': %w", key, err)
		}

		return f(string(key), &value)
	})
}

// languageBucket returns the nested bucket holding the saved settings of one language.
// Within a read-only transaction a missing bucket yields an empty Bucket.
func languageBucket(tx *bolt.Tx, lang string) (*Bucket[Entry], error) {
	if !tx.Writable() {
		root := tx.Bucket([]byte(bucketSettings))
		if root == nil {
			return &Bucket[Entry]{}, nil
		}

		return &Bucket[Entry]{root.Bucket([]byte(lang))}, nil
	}

	root, err := tx.CreateBucketIfNotExists([]byte(bucketSettings))
	if err != nil {
		return nil, fmt.Errorf("failed to get/create bucket %s: %w", bucketSettings, err)
	}

	b, err := root.CreateBucketIfNotExists([]byte(lang))
	if err != nil {
		return nil, fmt.Errorf("failed to get/create bucket %s/%s: %w", bucketSettings, lang, err)
	}

	return &Bucket[Entry]{b}, nil
}
