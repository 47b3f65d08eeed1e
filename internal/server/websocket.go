package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/simulation"
)

const (
	writeWait      = 5 * time.Second
	readLimit      = 512
	shutdownWindow = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type viewer struct {
	id    string
	conn  *websocket.Conn
	inbox mailbox
	done  chan struct{}
	once  sync.Once
}

func (v *viewer) stop() {
	v.once.Do(func() {
		close(v.done)
		_ = v.conn.Close()
	})
}

// Hub streams step snapshots to websocket viewers. Viewers are read-only:
// anything they send is discarded.
type Hub struct {
	logger log.Log
	sub    bus.Subscription

	mu      sync.RWMutex
	viewers map[string]*viewer
	latest  simulation.Snapshot
	closed  bool
}

// NewHub subscribes to step events. initial is served until the first step.
func NewHub(eventBus bus.EventBus, initial simulation.Snapshot, logger log.Log) (*Hub, error) {
	if eventBus == nil {
		return nil, ErrNilDependency
	}
	if logger == nil {
		logger = log.NewNop()
	}

	h := &Hub{
		logger:  logger.With(log.String("component", "websocket_hub")),
		viewers: make(map[string]*viewer),
		latest:  initial,
	}

	sub, err := eventBus.Subscribe(simulation.EventStep, func(e bus.Event) error {
		snap, err := snapshotOf(e)
		if err != nil {
			return err
		}
		h.Broadcast(snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.sub = sub
	return h, nil
}

// Handler serves /ws and /snapshot.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/snapshot", h.handleSnapshot)
	return mux
}

// Latest returns the most recent snapshot the hub has seen.
func (h *Hub) Latest() simulation.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Broadcast records snap as latest and queues it for every viewer.
func (h *Hub) Broadcast(snap simulation.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = snap
	for _, v := range h.viewers {
		v.inbox.offer(snap)
	}
}

func (h *Hub) register(v *viewer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.viewers[v.id] = v
	v.inbox.offer(h.latest)
	return nil
}

func (h *Hub) unregister(v *viewer) {
	h.mu.Lock()
	delete(h.viewers, v.id)
	h.mu.Unlock()
	v.stop()
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	v := &viewer{
		id:    uuid.NewString(),
		conn:  conn,
		inbox: newMailbox(),
		done:  make(chan struct{}),
	}
	if err := h.register(v); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	logger := h.logger.With(log.String("viewer", v.id), log.String("remote", conn.RemoteAddr().String()))
	logger.Info("viewer connected")

	go h.writePump(v, logger)
	h.readPump(v)
	h.unregister(v)

	logger.Info("viewer disconnected")
}

// readPump drains client frames so control messages are processed; it
// returns when the connection fails or closes.
func (h *Hub) readPump(v *viewer) {
	v.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := v.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(v *viewer, logger log.Log) {
	for {
		select {
		case <-v.done:
			return
		case snap := <-v.inbox:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteJSON(snap); err != nil {
				logger.Debug("viewer write failed", log.Error(err))
				v.stop()
				return
			}
		}
	}
}

// Close drops the step subscription and disconnects every viewer. New
// connections are refused with ErrHubClosed afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	viewers := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.Unlock()

	err := h.sub.Cancel()
	for _, v := range viewers {
		_ = v.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "simulation stopped"),
			time.Now().Add(writeWait))
		v.stop()
	}
	return err
}

// Serve runs an HTTP server for Handler on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: writeWait,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	h.logger.Info("websocket hub listening", log.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
	defer cancel()
	_ = h.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
