package publisher

import (
	"context"
	"sync"

	r "github.com/Johnm75/Tienda/internal/repository"
	"github.com/segmentio/kafka-go"
)

type MockEventStore struct {
	mu           sync.Mutex
	OutboxEvents []*r.OutboxEvent
	GetErr       error
	MarkErr      error
	ProcessedIDs []int
}

func (m *MockEventStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var pending []*r.OutboxEvent
	for _, e := range m.OutboxEvents {
		if !m.processed(e.ID) {
			pending = append(pending, e)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (m *MockEventStore) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockEventStore) processed(id int) bool {
	for _, p := range m.ProcessedIDs {
		if p == id {
			return true
		}
	}
	return false
}

type MockWriter struct {
	mu       sync.Mutex
	Messages []kafka.Message
	// FailOn makes writes of this key fail.
	FailOn string
	Err    error
	Closed bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		if m.FailOn != "" && string(msg.Key) == m.FailOn {
			return m.Err
		}
		m.Messages = append(m.Messages, msg)
	}
	return nil
}

func (m *MockWriter) Close() error {
	m.Closed = true
	return nil
}
