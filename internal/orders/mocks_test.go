package orders

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

type memHistory struct {
	mu        sync.Mutex
	purchases []*Purchase
	err       error
}

func (m *memHistory) Record(_ context.Context, p *Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.purchases {
		if existing.CheckoutID == p.CheckoutID {
			return ErrDuplicateCheckout
		}
	}
	m.purchases = append(m.purchases, p)
	return nil
}

func (m *memHistory) ListByUser(_ context.Context, userID string) ([]*Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memHistory) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.purchases[:0]
	for _, p := range m.purchases {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	m.purchases = kept
	return nil
}

// sliceReader hands out queued messages, then blocks until ctx is done.
type sliceReader struct {
	msgs []kafka.Message
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *sliceReader) Close() error { return nil }
