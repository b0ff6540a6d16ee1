// Package pgindex reads term counts from a PostgreSQL table with one row
// per (term, doc_id) pair. EnsureSchema creates it when missing.
package pgindex

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
)

// DefaultTable is used when New is given an empty table name.
const DefaultTable = "term_counts"

// Index is a lookup.Lookup over a term_counts table.
type Index struct {
	db          *postgres.Client
	table       string
	selectQuery string
	upsertQuery string
	schema      []string
}

// New returns an Index reading table. The name is quoted as an identifier.
func New(db *postgres.Client, table string) *Index {
	if table == "" {
		table = DefaultTable
	}
	quoted := pq.QuoteIdentifier(table)
	return &Index{
		db:          db,
		table:       table,
		selectQuery: fmt.Sprintf(`SELECT doc_id, count FROM %s WHERE term = $1`, quoted),
		upsertQuery: fmt.Sprintf(
			`INSERT INTO %s (term, doc_id, count) VALUES ($1, $2, $3)
			 ON CONFLICT (term, doc_id) DO UPDATE SET count = EXCLUDED.count`, quoted),
		schema: []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				term   TEXT    NOT NULL,
				doc_id TEXT    NOT NULL,
				count  INTEGER NOT NULL CHECK (count > 0),
				PRIMARY KEY (term, doc_id)
			)`, quoted),
		},
	}
}

// EnsureSchema creates the table if it does not exist.
func (i *Index) EnsureSchema(ctx context.Context) error {
	if err := i.db.Migrate(ctx, i.schema...); err != nil {
		return fmt.Errorf("creating %s: %w", i.table, err)
	}
	return nil
}

// Counts implements lookup.Lookup.
func (i *Index) Counts(ctx context.Context, term string) (map[string]int, error) {
	rows, err := i.db.DB.QueryContext(ctx, i.selectQuery, term)
	if err != nil {
		return nil, fmt.Errorf("querying %s for %q: %w", i.table, term, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			docID string
			count int
		)
		if err := rows.Scan(&docID, &count); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", i.table, err)
		}
		counts[docID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", i.table, err)
	}
	return counts, nil
}

// Seed upserts postings for term in a single transaction.
func (i *Index) Seed(ctx context.Context, term string, postings map[string]int) error {
	if err := lookup.ValidateCounts("document", postings); err != nil {
		return err
	}
	docs := lookup.SortedKeys(postings)
	return i.upsert(ctx, len(docs), func(n int) (string, string, int) {
		return term, docs[n], postings[docs[n]]
	})
}

// SeedDocument upserts every term count of docID in a single transaction.
func (i *Index) SeedDocument(ctx context.Context, docID string, counts map[string]int) error {
	if docID == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "empty document id")
	}
	if err := lookup.ValidateCounts("term", counts); err != nil {
		return err
	}
	terms := lookup.SortedKeys(counts)
	return i.upsert(ctx, len(terms), func(n int) (string, string, int) {
		return terms[n], docID, counts[terms[n]]
	})
}

func (i *Index) upsert(ctx context.Context, rows int, row func(n int) (term, docID string, count int)) error {
	return i.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, i.upsertQuery)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for n := 0; n < rows; n++ {
			term, docID, count := row(n)
			if _, err := stmt.ExecContext(ctx, term, docID, count); err != nil {
				return fmt.Errorf("upserting %q/%s: %w", term, docID, err)
			}
		}
		return nil
	})
}

// Ping checks the database connection.
func (i *Index) Ping(ctx context.Context) error {
	return i.db.Ping(ctx)
}
