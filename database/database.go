// Package database is the key-value layer under the commitment storage.
package database

type (
	KeyValueReader interface {
		// Has retrieves if a key is present in the key-value data store.
		Has(key []byte) (bool, error)

		// Get retrieves the given key if it's present in the key-value data store.
		Get(key []byte) ([]byte, error)
	}
	KeyValueWriter interface {
		// Set inserts the given value into the key-value data store.
		Set(key []byte, value []byte) error

		// Delete removes the key from the key-value data store.
		Delete(key []byte) error
	}
	KeyValueIterator interface {
		// Iterate calls fn for every key starting with prefix, in ascending
		// key order, and stops at the first error fn returns. Keys and values
		// handed to fn may be retained.
		Iterate(prefix []byte, fn func(key, value []byte) error) error
	}
	Store interface {
		KeyValueReader
		KeyValueWriter
		KeyValueIterator
		// NewBatch creates a write-only database that buffers changes to its host db
		// until a final write is called.
		NewBatch() Batcher
		Close() error
	}

	Batcher interface {
		KeyValueWriter

		// Write flushes any accumulated data to disk.
		Write() error

		// Reset resets the batch for reuse.
		Reset()

		// ValueSize retrieves the amount of data queued up for writing.
		ValueSize() int
	}
)
