package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/beaconchat/beacon/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Gateway accepts WebSocket connections on the hub endpoint and runs each
// client's pumps. It tracks live connections so shutdown can close them and
// wait for the pump goroutines to drain.
type Gateway struct {
	coord    *hub.Coordinator
	dispatch *hub.Dispatcher
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
}

// NewGateway wires the transport to the coordinator and dispatcher.
func NewGateway(coord *hub.Coordinator, dispatch *hub.Dispatcher, logger *slog.Logger) *Gateway {
	return &Gateway{
		coord:    coord,
		dispatch: dispatch,
		log:      logger,
		clients:  make(map[*Client]struct{}),
	}
}

// HandleWS upgrades the request, assigns a fresh connection id, registers the
// outbound channel, announces the connection to the hub, and starts the
// client pumps. The display name comes from the `user` query parameter.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("ws.upgrade", "err", err)
		return
	}

	id := uuid.NewString()
	client := NewClient(id, conn, g.coord, g.dispatch, g.log)

	// Registration must complete before the read pump can run the
	// disconnect path, otherwise an instant close could tear down state
	// that is only registered afterwards. The welcome and join events
	// queue in the outbound buffer until the write pump drains them.
	g.dispatch.Register(id, client.SendChan())
	g.coord.Connect(id, r.URL.Query().Get("user"))
	g.track(client)

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		client.writePump()
	}()
	go func() {
		defer func() {
			g.untrack(client)
			g.wg.Done()
		}()
		client.readPump()
	}()
}

func (g *Gateway) track(c *Client) {
	g.mu.Lock()
	g.clients[c] = struct{}{}
	g.mu.Unlock()
}

func (g *Gateway) untrack(c *Client) {
	g.mu.Lock()
	delete(g.clients, c)
	g.mu.Unlock()
}

// Shutdown closes every live connection and waits for the pump goroutines to
// finish, up to the timeout. Read pumps observe the close, run their normal
// disconnect path, and the coordinator cleans up per-connection state.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	g.mu.Lock()
	clients := make([]*Client, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			g.log.Warn("ws.shutdown.close", "connectionId", c.ID(), "err", err)
		}
	}
	g.log.Info("gateway.shutdown", "connections", len(clients))

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		g.log.Warn("gateway.shutdown.timeout")
		return context.DeadlineExceeded
	}
}
