// Package realtime implements the Real-time Plane: a process-wide
// registry of per-channel broadcast hubs with double-checked-locking
// creation, generalizing the teacher's single global websocket hub
// (internal/websocket/dag_streamer.go's register/unregister/broadcast
// pattern) into one hub per channel, and following
// original_source/crates/server/src/ws.rs for the exact broadcast topology
// (bounded capacity, broadcast-before-ack, idempotent subscribe).
package realtime

import (
	"sync"

	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/metrics"
)

// subscriberQueueCapacity bounds each subscriber's inbox; a full queue
// drops the newest envelope for that subscriber rather than blocking the
// broadcaster, per the Real-time Plane's non-blocking-broadcast invariant.
const subscriberQueueCapacity = 100

// hub fans a channel's events out to every current subscriber.
type hub struct {
	mu          sync.RWMutex
	subscribers map[int64]chan domain.WsEnvelope
	nextID      int64
}

func newHub() *hub {
	return &hub{subscribers: make(map[int64]chan domain.WsEnvelope)}
}

func (h *hub) subscribe() (int64, <-chan domain.WsEnvelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan domain.WsEnvelope, subscriberQueueCapacity)
	h.subscribers[id] = ch
	return id, ch
}

func (h *hub) unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

func (h *hub) broadcast(env domain.WsEnvelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- env:
		default:
			metrics.BroadcastDropsTotal.Inc()
		}
	}
}

// Registry is the process-wide channel_id -> hub map. A hub is created
// lazily on first subscribe or broadcast, using a read-lock fast path and
// a write-lock double-check before creating, so concurrent first-touches
// never race to create two hubs for the same channel.
type Registry struct {
	mu   sync.RWMutex
	hubs map[string]*hub
}

func NewRegistry() *Registry {
	return &Registry{hubs: make(map[string]*hub)}
}

func (r *Registry) getOrCreate(channelID string) *hub {
	r.mu.RLock()
	h, ok := r.hubs[channelID]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hubs[channelID]; ok {
		return h
	}
	h = newHub()
	r.hubs[channelID] = h
	return h
}

// Subscribe returns a handle receiving every envelope broadcast on
// channelID from this point on.
func (r *Registry) Subscribe(channelID string) *Subscription {
	h := r.getOrCreate(channelID)
	id, ch := h.subscribe()
	return &Subscription{hub: h, id: id, channelID: channelID, C: ch}
}

// Broadcast fans env out to every current subscriber of channelID.
func (r *Registry) Broadcast(channelID string, env domain.WsEnvelope) {
	r.getOrCreate(channelID).broadcast(env)
}

// Subscription is a live subscribe()'d channel. Cancel must be called
// exactly once to release it.
type Subscription struct {
	hub       *hub
	id        int64
	channelID string
	C         <-chan domain.WsEnvelope
}

func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s.id)
}

// ConnRegistry tracks every live WebSocket session process-wide, so a
// graceful shutdown can close sockets that have already been hijacked out
// of the HTTP server's own connection bookkeeping.
type ConnRegistry struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{sessions: make(map[*session]struct{})}
}

func (c *ConnRegistry) add(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s] = struct{}{}
}

func (c *ConnRegistry) remove(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, s)
}

// CloseAll closes every currently tracked connection. Each close unblocks
// that session's readLoop, which drives its own subscription teardown, so
// CloseAll does not need to wait on session.run to return.
func (c *ConnRegistry) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.sessions {
		s.conn.Close()
	}
}
