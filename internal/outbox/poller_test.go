package outbox

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { log.SetOutput(io.Discard) }

type memStore struct {
	mu     sync.Mutex
	events []Event
	sent   map[int64]bool
}

func (s *memStore) FetchUnsent(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if !s.sent[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) MarkSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = true
	return nil
}

type recPublisher struct {
	mu     sync.Mutex
	got    []string
	failOn int64
}

func (p *recPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.ID == p.failOn {
		return errors.New("broker down")
	}
	p.got = append(p.got, e.EventType)
	return nil
}

func newStore() *memStore {
	return &memStore{
		events: []Event{
			{ID: 1, EventType: EventOrderCreated, Key: "abc123xyz"},
			{ID: 2, EventType: EventOrderPaid, Key: "abc123xyz"},
			{ID: 3, EventType: EventOrderCreated, Key: "zzz999aaa"},
		},
		sent: map[int64]bool{},
	}
}

func TestRelay_PublishesInOrder(t *testing.T) {
	store := newStore()
	pub := &recPublisher{}
	p := NewPoller(store, pub)

	n := p.relay(context.Background())

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{EventOrderCreated, EventOrderPaid, EventOrderCreated}, pub.got)
	assert.Len(t, store.sent, 3)
}

func TestRelay_StopsAtFailure(t *testing.T) {
	store := newStore()
	pub := &recPublisher{failOn: 2}
	p := NewPoller(store, pub)

	n := p.relay(context.Background())

	assert.Equal(t, 1, n)
	assert.True(t, store.sent[1])
	assert.False(t, store.sent[2])
	assert.False(t, store.sent[3])

	pub.failOn = 0
	assert.Equal(t, 2, p.relay(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := newStore()
	pub := &recPublisher{}
	p := NewPoller(store, pub)
	p.tick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
