package hub

import (
	"log/slog"
	"sync"
)

// Dispatcher is the outbound push channel to one or many connections. Each
// connection owns a buffered byte-slice channel drained by its transport
// write loop; the dispatcher never blocks on a slow client. A frame that
// cannot be queued for one target is dropped for that target only and the
// fan-out continues.
type Dispatcher struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[string]chan []byte
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{log: logger, conns: make(map[string]chan []byte)}
}

// Register attaches an outbound channel for a connection id. Registering an
// id twice replaces the previous channel without closing it; the transport
// owns channel lifetime up to Unregister.
func (d *Dispatcher) Register(connectionID string, ch chan []byte) {
	d.mu.Lock()
	d.conns[connectionID] = ch
	d.mu.Unlock()
}

// Unregister detaches and closes the connection's outbound channel. Safe to
// call for ids that were never registered.
func (d *Dispatcher) Unregister(connectionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.conns[connectionID]; ok {
		delete(d.conns, connectionID)
		// Closing under the lock: SendTo queues while holding the read
		// lock, so no send can race the close.
		close(ch)
	}
}

// SendTo queues a frame for a single connection. Returns false when the
// connection is unknown or its buffer is full.
func (d *Dispatcher) SendTo(connectionID string, frame []byte) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.conns[connectionID]
	if !ok {
		return false
	}

	select {
	case ch <- frame:
		return true
	default:
		metricDroppedFrames.Inc()
		d.log.Warn("dispatch.drop", "connectionId", connectionID)
		return false
	}
}

// Broadcast queues a frame for every connection.
func (d *Dispatcher) Broadcast(frame []byte) {
	d.BroadcastExcept("", frame)
}

// BroadcastExcept queues a frame for every connection other than exceptID.
func (d *Dispatcher) BroadcastExcept(exceptID string, frame []byte) {
	for _, id := range d.ids() {
		if id == exceptID {
			continue
		}
		d.SendTo(id, frame)
	}
}

// SendToMany queues a frame for each listed connection id.
func (d *Dispatcher) SendToMany(connectionIDs []string, frame []byte) {
	for _, id := range connectionIDs {
		d.SendTo(id, frame)
	}
}

func (d *Dispatcher) ids() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.conns))
	for id := range d.conns {
		ids = append(ids, id)
	}
	return ids
}
