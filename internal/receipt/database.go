package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName  = "receipts"
	lineItemBucketName = "line_items"
)

// DB defines the interface for receipt persistence
type DB interface {
	// Create inserts a new record and returns its id
	Create(record *Record) (string, error)

	// Update replaces the record and its full product list
	Update(id string, record *Record) error

	// AppendStatus appends one history entry with a fresh timestamp
	// and moves the record to the given status. It returns the entry
	// as persisted so callers can mirror it without re-stamping.
	AppendStatus(id string, status Status, details string) (StatusEntry, error)

	// GetByID retrieves a record with its products
	GetByID(id string) (*Record, error)

	// CleanupOlderThan deletes records (and their line items) created
	// before now minus window, returning the number deleted
	CleanupOlderThan(window time.Duration) (int, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Receipts and line
// items live in separate buckets; line items are keyed receiptID/seq
// and fully replaced on every update.
type BoltDB struct {
	db    *bbolt.DB
	clock TimeSource
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	return NewBoltDBWithClock(path, &SystemClock{})
}

// NewBoltDBWithClock creates a BoltDB with a custom time source for testing
func NewBoltDBWithClock(path string, clock TimeSource) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &StorageError{Op: "opening boltdb", Err: err}
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(receiptBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(lineItemBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, &StorageError{Op: "creating buckets", Err: err}
	}

	return &BoltDB{db: db, clock: clock}, nil
}

func lineItemKey(id string, seq int) []byte {
	return []byte(fmt.Sprintf("%s/%06d", id, seq))
}

func lineItemPrefix(id string) []byte {
	return []byte(id + "/")
}

// putRecord writes the record head and fully replaces its line items
// (delete-then-reinsert) within the given transaction.
func putRecord(tx *bbolt.Tx, record *Record) error {
	head := *record
	head.Products = nil

	data, err := json.Marshal(&head)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	if err := tx.Bucket([]byte(receiptBucketName)).Put([]byte(record.ID), data); err != nil {
		return err
	}

	items := tx.Bucket([]byte(lineItemBucketName))
	if err := deleteLineItems(items, record.ID); err != nil {
		return err
	}
	for i, product := range record.Products {
		data, err := json.Marshal(&product)
		if err != nil {
			return fmt.Errorf("marshaling line item: %w", err)
		}
		if err := items.Put(lineItemKey(record.ID, i), data); err != nil {
			return err
		}
	}
	return nil
}

func deleteLineItems(items *bbolt.Bucket, id string) error {
	prefix := lineItemPrefix(id)
	c := items.Cursor()
	var stale [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := items.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a new record and returns its id
func (b *BoltDB) Create(record *Record) (string, error) {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return putRecord(tx, record)
	})
	if err != nil {
		return "", &StorageError{Op: "creating receipt", Err: err}
	}
	return record.ID, nil
}

// Update replaces the record and its full product list
func (b *BoltDB) Update(id string, record *Record) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(receiptBucketName)).Get([]byte(id)) == nil {
			return &NotFoundError{ID: id}
		}
		record.ID = id
		return putRecord(tx, record)
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return &StorageError{Op: "updating receipt", Err: err}
	}
	return nil
}

// AppendStatus appends one history entry and moves the record to status.
// The read-modify-write happens in a single transaction; prior entries
// are never rewritten.
func (b *BoltDB) AppendStatus(id string, status Status, details string) (StatusEntry, error) {
	entry := StatusEntry{
		Status:    status,
		Timestamp: b.clock.Now(),
		Details:   details,
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return &NotFoundError{ID: id}
		}

		var head Record
		if err := json.Unmarshal(data, &head); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}

		head.Status = status
		head.StatusHistory = append(head.StatusHistory, entry)

		updated, err := json.Marshal(&head)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put([]byte(id), updated)
	})
	if err != nil {
		if IsNotFound(err) {
			return StatusEntry{}, err
		}
		return StatusEntry{}, &StorageError{Op: "appending status", Err: err}
	}
	return entry, nil
}

// GetByID retrieves a record with its products in entry order
func (b *BoltDB) GetByID(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucketName)).Get([]byte(id))
		if data == nil {
			return &NotFoundError{ID: id}
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}

		prefix := lineItemPrefix(id)
		c := tx.Bucket([]byte(lineItemBucketName)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var product LineItem
			if err := json.Unmarshal(v, &product); err != nil {
				return fmt.Errorf("unmarshaling line item: %w", err)
			}
			record.Products = append(record.Products, product)
		}
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &StorageError{Op: "getting receipt", Err: err}
	}
	return record, nil
}

// CleanupOlderThan deletes records created before now minus window.
// Idempotent; safe to run repeatedly.
func (b *BoltDB) CleanupOlderThan(window time.Duration) (int, error) {
	cutoff := b.clock.Now().Add(-window)
	deleted := 0
	err := b.db.Update(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket([]byte(receiptBucketName))
		items := tx.Bucket([]byte(lineItemBucketName))

		var expired []string
		err := receipts.ForEach(func(k, v []byte) error {
			var head Record
			if err := json.Unmarshal(v, &head); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			if head.CreatedAt.Before(cutoff) {
				expired = append(expired, string(k))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, id := range expired {
			if err := deleteLineItems(items, id); err != nil {
				return err
			}
			if err := receipts.Delete([]byte(id)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "cleaning up receipts", Err: err}
	}
	return deleted, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
