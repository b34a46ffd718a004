// Package hub fans encoded snapshots out to consumers through bounded
// per-consumer queues. A full queue drops its oldest frame, so a stalled
// consumer only ever loses its own updates.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

const DefaultQueueSize = 4

type Hub struct {
	logger    *slog.Logger
	queueSize int

	mu   sync.RWMutex
	subs map[string]*Subscription
}

func New(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{logger: logger, queueSize: queueSize, subs: make(map[string]*Subscription)}
}

// Subscription is one consumer's outbound queue.
type Subscription struct {
	id      string
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	logger  *slog.Logger
}

// Subscribe registers id, replacing and closing any previous subscription
// with the same id.
func (h *Hub) Subscribe(id string) *Subscription {
	sub := &Subscription{
		id:     id,
		queue:  make(chan []byte, h.queueSize),
		done:   make(chan struct{}),
		logger: h.logger,
	}
	h.mu.Lock()
	old := h.subs[id]
	h.subs[id] = sub
	h.mu.Unlock()
	if old != nil {
		old.close()
	}
	return sub
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		sub.close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish encodes snap once and offers it to every subscriber without
// blocking.
func (h *Hub) Publish(snap model.Snapshot) error {
	data, err := Encode(model.StatsMessage(snap))
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Broadcast offers an encoded frame to every subscriber.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.Offer(data)
	}
}

// Encode marshals a live channel message.
func Encode(msg model.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return data, nil
}

func (s *Subscription) ID() string { return s.id }

// C yields queued frames in order.
func (s *Subscription) C() <-chan []byte { return s.queue }

// Done is closed once the subscription is removed from the hub.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Dropped counts frames discarded because the queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Offer enqueues data, evicting the oldest pending frame when full. It never
// blocks.
func (s *Subscription) Offer(data []byte) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.queue <- data:
			return
		default:
		}
		select {
		case <-s.queue:
			n := s.dropped.Add(1)
			s.logger.Debug("dropped stale frame", "client_id", s.id, "dropped_total", n)
		default:
		}
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.done) })
}
