package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs      chan kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type hits struct {
	N int `json:"hits"`
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer[hits](w, "analytics-events")

	require.NoError(t, p.Publish(context.Background(), "search", hits{N: 3}, hits{N: 4}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "search", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"hits":3}`, string(w.msgs[0].Value))

	require.NoError(t, p.Publish(context.Background(), "search"))
	assert.Len(t, w.msgs, 2)
}

func TestProducerPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	err := newProducer[hits](w, "t").Publish(context.Background(), "k", hits{N: 1})
	assert.ErrorContains(t, err, "broker down")

	err = newProducer[chan int](&fakeWriter{}, "t").Publish(context.Background(), "k", make(chan int))
	assert.ErrorContains(t, err, "encoding")
}

func TestConsumerCommitsHandledAndSkipsPoison(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 4)}
	r.msgs <- kafka.Message{Offset: 1, Value: []byte(`{"hits":1}`)}
	r.msgs <- kafka.Message{Offset: 2, Value: []byte(`bad`)}
	r.msgs <- kafka.Message{Offset: 3, Value: []byte(`{"hits":2}`)}
	r.msgs <- kafka.Message{Offset: 4, Value: []byte(`{"hits":3}`)}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []int
	handler := func(ctx context.Context, v hits) error {
		seen = append(seen, v.N)
		switch v.N {
		case 2:
			return errors.New("store unavailable")
		case 3:
			cancel()
		}
		return nil
	}

	c := newConsumer[hits](r, "t", handler)
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []int64{1, 2, 4}, r.committed, "poison is committed, failed handler is not")
	assert.Equal(t, int64(1), c.Skipped())
	assert.True(t, r.closed)
}
