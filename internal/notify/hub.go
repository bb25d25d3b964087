package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// Event is the message pushed to subscribers.
type Event struct {
	Type      string  `json:"type"`
	JobID     string  `json:"jobId"`
	Status    string  `json:"status"`
	VideoURL  *string `json:"videoUrl"`
	Error     *string `json:"error"`
	Timestamp int64   `json:"timestamp"`
}

// NewEvent builds a job_update event from a job snapshot.
func NewEvent(job *domain.Job) Event {
	ev := Event{
		Type:      "job_update",
		JobID:     job.ID,
		Status:    string(job.Status),
		Timestamp: job.CreatedAt.UnixMilli(),
	}
	if !job.CompletedAt.IsZero() {
		ev.Timestamp = job.CompletedAt.UnixMilli()
	}
	if job.VideoURL != "" {
		v := job.VideoURL
		ev.VideoURL = &v
	}
	if job.Error != "" {
		e := job.Error
		ev.Error = &e
	}
	return ev
}

// Lookup fetches the current state of a job for subscribers that filter by id.
type Lookup func(ctx context.Context, jobID string) (*domain.Job, error)

// HubOptions configures a Hub.
type HubOptions struct {
	// AllowedOrigins mirrors the CORS allowlist; "*" accepts any origin.
	AllowedOrigins []string
	Lookup         Lookup
	Logger         *infra.Logger
}

type subscriber struct {
	id    string
	jobID string
	conn  *websocket.Conn
	send  chan []byte

	// settled is set once a terminal event has been queued; guarded by Hub.mu.
	settled bool
}

// Hub fans terminal job transitions out to websocket subscribers.
type Hub struct {
	mu       sync.Mutex
	clients  map[*subscriber]struct{}
	upgrader websocket.Upgrader
	lookup   Lookup
	logger   *infra.Logger
}

func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	h := &Hub{
		clients: make(map[*subscriber]struct{}),
		lookup:  opts.Lookup,
		logger:  logger,
	}
	origins := append([]string(nil), opts.AllowedOrigins...)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range origins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// JobUpdated broadcasts job to every matching subscriber. Subscribers whose
// buffer is full are disconnected rather than blocking the caller.
func (h *Hub) JobUpdated(job *domain.Job) {
	if job == nil {
		return
	}
	payload, err := json.Marshal(NewEvent(job))
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("notify: marshal event failed")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		if s.jobID != "" && s.jobID != job.ID {
			continue
		}
		h.queueLocked(s, payload, job.Status.IsTerminal())
	}
}

// queueLocked hands payload to s without blocking. Callers hold h.mu.
func (h *Hub) queueLocked(s *subscriber, payload []byte, terminal bool) {
	select {
	case s.send <- payload:
		if terminal {
			s.settled = true
		}
	default:
		h.logger.Warn().Str("client_id", s.id).Msg("notify: subscriber too slow, dropping")
		h.removeLocked(s)
	}
}

// ServeHTTP upgrades the request and streams events until the peer goes away.
// An optional jobId query parameter limits the stream to one job.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("notify: websocket upgrade failed")
		return
	}
	s := &subscriber{
		id:    uuid.NewString(),
		jobID: r.URL.Query().Get("jobId"),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
	}

	// Register before the snapshot so a transition racing the lookup is
	// still delivered.
	h.mu.Lock()
	h.clients[s] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Str("client_id", s.id).Str("job_id", s.jobID).Int("clients", total).Msg("notify: subscriber connected")

	if s.jobID != "" && h.lookup != nil {
		h.sendSnapshot(r.Context(), s)
	}

	go h.writeLoop(s)
	h.readLoop(s)
}

// sendSnapshot queues the job's current state unless a terminal event already
// reached s; a snapshot read before that event would be stale.
func (h *Hub) sendSnapshot(ctx context.Context, s *subscriber) {
	job, err := h.lookup(ctx, s.jobID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(NewEvent(job))
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[s]; !ok || s.settled {
		return
	}
	h.queueLocked(s, payload, job.Status.IsTerminal())
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		h.removeLocked(s)
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *subscriber) {
	if _, ok := h.clients[s]; !ok {
		return
	}
	delete(h.clients, s)
	close(s.send)
}

// readLoop discards client messages; its only job is to notice disconnects.
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
		h.logger.Debug().Str("client_id", s.id).Msg("notify: subscriber disconnected")
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
