package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/memindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/redisindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(context.Context) (int64, error) {
	c.calls++
	return 0, c.err
}

type failingSeeder struct {
	calls int
	err   error
}

func (f *failingSeeder) Seed(context.Context, string, map[string]int) error {
	return errors.New("term-by-term seeding is not used by the writer")
}

func (f *failingSeeder) SeedDocument(ctx context.Context, docID string, counts map[string]int) error {
	f.calls++
	return f.err
}

func TestWriteMemoryReplacesDocument(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	inv := &countingInvalidator{}
	w := New(nil, idx, inv)

	resp, err := w.Write(ctx, &ingestion.DocumentRequest{DocumentID: "docA", Title: "Java", Body: "java programming"})
	require.NoError(t, err)
	assert.Equal(t, &ingestion.DocumentResponse{DocumentID: "docA", Status: "indexed", Terms: 2}, resp)

	counts, err := idx.Counts(ctx, "java")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"docA": 2}, counts)

	_, err = w.Write(ctx, &ingestion.DocumentRequest{DocumentID: "docA", Body: "coffee"})
	require.NoError(t, err)
	counts, err = idx.Counts(ctx, "java")
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.Equal(t, 2, inv.calls)
}

func TestWriteGeneratesID(t *testing.T) {
	resp, err := New(nil, memindex.New(), nil).Write(context.Background(), &ingestion.DocumentRequest{Body: "java"})
	require.NoError(t, err)
	assert.Len(t, resp.DocumentID, 36)
}

func TestWriteRejectsStopWordsOnly(t *testing.T) {
	_, err := New(nil, memindex.New(), nil).Write(context.Background(), &ingestion.DocumentRequest{Body: "the and of"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestWriteRedisStoresWords(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	idx := redisindex.New(client)

	inv := &countingInvalidator{err: errors.New("cache down")}
	resp, err := New(idx, nil, inv).Write(ctx, &ingestion.DocumentRequest{
		DocumentID: "https://en.wikipedia.org/wiki/Java",
		Body:       "Java programming, java coffee",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Terms)
	assert.Equal(t, 1, inv.calls)

	counts, err := idx.Counts(ctx, "programming")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"https://en.wikipedia.org/wiki/Java": 1}, counts)

	counts, err = idx.Counts(ctx, "java")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"https://en.wikipedia.org/wiki/Java": 2}, counts)
}

func TestWriteFailureStillInvalidatesCache(t *testing.T) {
	seeder := &failingSeeder{err: errors.New("connection reset")}
	inv := &countingInvalidator{}

	_, err := New(seeder, nil, inv).Write(context.Background(), &ingestion.DocumentRequest{
		DocumentID: "docA",
		Body:       "java programming coffee",
	})
	assert.ErrorIs(t, err, seeder.err)
	assert.ErrorContains(t, err, "indexing docA")
	assert.Equal(t, 1, seeder.calls, "all terms go in one write")
	assert.Equal(t, 1, inv.calls)
}
