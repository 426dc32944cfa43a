package hub

import (
	"context"
	"sync"
	"time"

	"github.com/beaconchat/beacon/internal/protocol"
	"github.com/beaconchat/beacon/internal/telemetry"
)

// streamSet tracks at most one active telemetry subscription per connection.
// Each subscription is an independent goroutine cancelled through its own
// context, so stopping one connection's stream never disturbs another's.
type streamSet struct {
	mu      sync.Mutex
	streams map[string]*streamEntry
}

type streamEntry struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newStreamSet() *streamSet {
	return &streamSet{streams: make(map[string]*streamEntry)}
}

// start records a new subscription context for the connection, cancelling any
// previous one first so a restart replaces rather than stacks.
func (s *streamSet) start(connectionID string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if prev, ok := s.streams[connectionID]; ok {
		prev.cancel()
	}
	s.streams[connectionID] = &streamEntry{ctx: ctx, cancel: cancel}
	s.mu.Unlock()

	return ctx
}

// stop cancels the connection's subscription if one is active.
func (s *streamSet) stop(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.streams[connectionID]; ok {
		entry.cancel()
		delete(s.streams, connectionID)
	}
}

// drop removes the bookkeeping entry for a subscription that ended on its
// own, but only if it still owns the slot (a restart may have replaced it).
func (s *streamSet) drop(connectionID string, ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.streams[connectionID]; ok && entry.ctx == ctx {
		entry.cancel()
		delete(s.streams, connectionID)
	}
}

func (s *streamSet) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// runStream pushes one telemetry snapshot per interval to a single
// connection until the subscription context is cancelled. Samples are pulled
// from the source at emission time, never pre-buffered. Cancellation is
// observed within one interval; it is expected termination, not an error.
func runStream(ctx context.Context, dispatch *Dispatcher, source telemetry.Source, connectionID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := protocol.TelemetrySnapshot{
				Timestamp:   time.Now().UTC(),
				CPUUsage:    source.CPUPercent(),
				MemoryUsage: source.MemoryPercent(),
				NetworkIn:   source.NetworkInMBps(),
				NetworkOut:  source.NetworkOutMBps(),
			}
			frame, err := protocol.Encode(protocol.TypeReceiveMonitoringData, snapshot)
			if err != nil {
				continue
			}
			dispatch.SendTo(connectionID, frame)
			metricTelemetryEmits.Inc()
		}
	}
}
