package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/ferret/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketDocuments = []byte("documents")

// Store is the BoltDB-backed document catalog.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the catalog database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ferret.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// PutDocument upserts a document record keyed by doc_id.
func (s *Store) PutDocument(rec *types.DocumentRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.DocID), data)
	})
}

// GetDocument returns the record for docID, or an error when absent.
func (s *Store) GetDocument(docID string) (*types.DocumentRecord, error) {
	var rec types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		data := b.Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("document not found: %s", docID)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListDocuments returns every catalog record.
func (s *Store) ListDocuments() ([]*types.DocumentRecord, error) {
	var records []*types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		return b.ForEach(func(k, v []byte) error {
			var rec types.DocumentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	return records, err
}

// CountDocuments returns the number of catalogued documents.
func (s *Store) CountDocuments() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketDocuments).Stats().KeyN
		return nil
	})
	return count, err
}
