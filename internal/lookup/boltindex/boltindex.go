// Package boltindex stores term counts in a local bbolt file, one bucket
// per term. Keys are document identifiers; values are decimal counts.
package boltindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Index is a lookup.Lookup over a bbolt database.
type Index struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the database at path, creating missing parent
// directories. A second process holding the file lock makes Open fail after
// one second.
func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory %s: %w", dir, err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt index %s: %w", path, err)
	}
	logger := slog.Default().With("component", "bolt-index", "path", path)
	logger.Info("bolt index opened")
	return &Index{db: db, path: path, logger: logger}, nil
}

// Counts implements lookup.Lookup. bbolt reads are not cancellable, so ctx
// is only checked before the transaction starts.
func (i *Index) Counts(ctx context.Context, term string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	if term == "" {
		return counts, nil
	}
	err := i.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(term))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if v == nil {
				return nil
			}
			n, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("%w: malformed count %q for %s: %w", apperrors.ErrCorruptData, v, k, err)
			}
			counts[string(k)] = n
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading bucket %q: %w", term, err)
	}
	return counts, nil
}

// Seed writes postings into the term's bucket, creating it if needed.
func (i *Index) Seed(ctx context.Context, term string, postings map[string]int) error {
	if term == "" {
		return errors.New("seeding bolt index: empty term")
	}
	if err := lookup.ValidateCounts("document", postings); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.db.Update(func(tx *bolt.Tx) error {
		for docID, n := range postings {
			if err := put(tx, term, docID, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedDocument writes docID into the bucket of every term in counts within
// one read-write transaction.
func (i *Index) SeedDocument(ctx context.Context, docID string, counts map[string]int) error {
	if docID == "" {
		return errors.New("seeding bolt index: empty document id")
	}
	if err := lookup.ValidateCounts("term", counts); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.db.Update(func(tx *bolt.Tx) error {
		for _, term := range lookup.SortedKeys(counts) {
			if err := put(tx, term, docID, counts[term]); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(tx *bolt.Tx, term, docID string, n int) error {
	b, err := tx.CreateBucketIfNotExists([]byte(term))
	if err != nil {
		return fmt.Errorf("creating bucket %q: %w", term, err)
	}
	if err := b.Put([]byte(docID), []byte(strconv.Itoa(n))); err != nil {
		return fmt.Errorf("writing %q/%s: %w", term, docID, err)
	}
	return nil
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// Close releases the file lock.
func (i *Index) Close() error {
	return i.db.Close()
}
