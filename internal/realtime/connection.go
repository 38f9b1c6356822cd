package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/domain"
	"github.com/ofscp/server/internal/graph"
	"github.com/ofscp/server/internal/metrics"
	"github.com/ofscp/server/internal/problem"
	"github.com/ofscp/server/internal/signature"
)

// upgrader follows the teacher's dag_streamer.go convention of accepting
// any origin; browser-side CORS policy for the upgrade handshake is an
// external collaborator's concern (§1 Non-goals: CORS policy tuning).
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the hub registry to live WebSocket connections.
type Server struct {
	registry *Registry
	graph    *graph.Graph
	verifier *signature.Verifier
	conns    *ConnRegistry
}

func NewServer(registry *Registry, g *graph.Graph, verifier *signature.Verifier) *Server {
	return &Server{registry: registry, graph: g, verifier: verifier, conns: NewConnRegistry()}
}

// Shutdown closes every live WebSocket connection this server accepted.
// cmd/server/main.go calls this alongside http.Server.Shutdown, since a
// hijacked connection is invisible to the HTTP server's own bookkeeping.
func (s *Server) Shutdown() {
	s.conns.CloseAll()
}

// HandleUpgrade authenticates the connection via query-carried signature
// parameters (the upgrade request cannot carry custom headers from a
// browser) and, once authenticated, hands the socket to a per-connection
// session.
func (s *Server) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	verified, err := s.verifier.VerifyQuery(r.Context(), r.URL.RawQuery, r.URL.Path)
	if err != nil {
		problem.Write(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	sess := &session{
		conn:     conn,
		userID:   verified.UserID,
		registry: s.registry,
		graph:    s.graph,
		subs:     make(map[string]*Subscription),
		outbound: make(chan domain.WsEnvelope, subscriberQueueCapacity),
	}
	s.conns.add(sess)
	defer s.conns.remove(sess)
	sess.run()
}

// session owns one WebSocket connection for its lifetime: one reader
// goroutine, one writer goroutine, and one forwarder goroutine per active
// subscription — the concurrency split the Real-time Plane requires so a
// slow subscriber forwarder never blocks the reader or other forwarders.
type session struct {
	conn     *websocket.Conn
	userID   string
	registry *Registry
	graph    *graph.Graph

	mu   sync.Mutex
	subs map[string]*Subscription

	outbound chan domain.WsEnvelope
}

func (s *session) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	s.readLoop(ctx)

	s.mu.Lock()
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil
	s.mu.Unlock()

	close(s.outbound)
	wg.Wait()
	s.conn.Close()
}

func (s *session) writeLoop() {
	for env := range s.outbound {
		if err := s.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env domain.WsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.sendError(env.ID, "BAD_ENVELOPE", "malformed envelope")
			continue
		}
		s.handleCommand(ctx, env)
	}
}

func (s *session) handleCommand(ctx context.Context, env domain.WsEnvelope) {
	payload, _ := json.Marshal(env.Data)

	switch env.Type {
	case domain.CommandSubscribe:
		var data domain.SubscribeData
		if err := json.Unmarshal(payload, &data); err != nil {
			s.sendError(env.ID, "BAD_COMMAND", "malformed subscribe command")
			return
		}
		s.subscribe(env.ID, data.ChannelID)

	case domain.CommandUnsubscribe:
		var data domain.UnsubscribeData
		if err := json.Unmarshal(payload, &data); err != nil {
			s.sendError(env.ID, "BAD_COMMAND", "malformed unsubscribe command")
			return
		}
		s.unsubscribe(env.ID, data.ChannelID)

	case domain.CommandMessageCreate:
		var data domain.MessageCreateData
		if err := json.Unmarshal(payload, &data); err != nil {
			s.sendError(env.ID, "BAD_COMMAND", "malformed message.create command")
			return
		}
		s.createMessage(ctx, env.ID, data)

	default:
		s.sendError(env.ID, "UNKNOWN_COMMAND", "unrecognized command type")
	}
}

// subscribe is idempotent: subscribing to an already-subscribed channel is
// a silent no-op followed by the same ack a fresh subscribe would send.
func (s *session) subscribe(envID, channelID string) {
	s.mu.Lock()
	_, already := s.subs[channelID]
	if !already {
		sub := s.registry.Subscribe(channelID)
		s.subs[channelID] = sub
		go s.forward(sub)
	}
	s.mu.Unlock()

	s.sendAck(envID, channelID)
}

func (s *session) unsubscribe(envID, channelID string) {
	s.mu.Lock()
	sub, ok := s.subs[channelID]
	if ok {
		delete(s.subs, channelID)
	}
	s.mu.Unlock()

	if ok {
		sub.Cancel()
	}
	s.sendAck(envID, channelID)
}

func (s *session) forward(sub *Subscription) {
	for env := range sub.C {
		s.send(env)
	}
}

func (s *session) createMessage(ctx context.Context, envID string, data domain.MessageCreateData) {
	ch, err := s.graph.GetChannelByID(ctx, data.ChannelID)
	if err != nil {
		s.sendError(envID, "NOT_FOUND", "channel not found")
		return
	}

	msg, err := s.graph.SendMessage(ctx, ch.GroupID, data.ChannelID, s.userID, domain.CreateMessageRequest{
		Title:       data.Title,
		Body:        data.Body,
		MessageType: data.MessageType,
		ParentID:    data.ParentID,
	})
	if err != nil {
		code := "DB_ERROR"
		if appErr, ok := apperr.As(err); ok {
			code = string(appErr.Kind)
		}
		s.sendError(envID, code, err.Error())
		return
	}

	event := domain.WsEnvelope{
		ID:            uuid.NewString(),
		Type:          domain.EventMessageNew,
		Data:          domain.MessageNewData{Message: msg},
		Timestamp:     time.Now().UTC(),
		CorrelationID: envID,
	}
	// Broadcast before acking the sender: the message.new envelope is in
	// every subscriber's queue before the ack is queued. On this connection
	// (if subscribed) its own copy passes through the forwarder goroutine,
	// so it may be written before or after the ack.
	s.registry.Broadcast(data.ChannelID, event)

	s.sendAckWithMessageID(envID, data.Nonce, msg.ID)
}

func (s *session) sendAck(envID, channelID string) {
	s.send(domain.WsEnvelope{
		ID:            uuid.NewString(),
		Type:          domain.EventAck,
		Data:          domain.AckData{Nonce: envID, MessageID: channelID},
		Timestamp:     time.Now().UTC(),
		CorrelationID: envID,
	})
}

func (s *session) sendAckWithMessageID(envID, nonce, messageID string) {
	s.send(domain.WsEnvelope{
		ID:            uuid.NewString(),
		Type:          domain.EventAck,
		Data:          domain.AckData{Nonce: nonce, MessageID: messageID},
		Timestamp:     time.Now().UTC(),
		CorrelationID: envID,
	})
}

func (s *session) sendError(envID, code, message string) {
	s.send(domain.WsEnvelope{
		ID:            uuid.NewString(),
		Type:          domain.EventError,
		Data:          domain.ErrorData{Code: code, Message: message},
		Timestamp:     time.Now().UTC(),
		CorrelationID: envID,
	})
}

func (s *session) send(env domain.WsEnvelope) {
	select {
	case s.outbound <- env:
	default:
		metrics.BroadcastDropsTotal.Inc()
	}
}
