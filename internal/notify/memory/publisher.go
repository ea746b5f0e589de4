// Package memory records published messages in-process, for tests
// and local runs without Pub/Sub.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Message is one recorded publish call.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher records every publish and assigns sequential IDs.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	next     int
}

// New returns an empty publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.messages = append(p.messages, Message{Topic: topic, Payload: data})
	return fmt.Sprintf("msg-%d", p.next), nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}
