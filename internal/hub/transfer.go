package hub

import "sync"

type transferKey struct {
	connectionID string
	fileName     string
}

type transfer struct {
	total  int
	chunks map[int][]byte
}

// TransferStore accumulates file chunks keyed by (connection id, file name).
// Chunks are index-addressed, so out-of-order and duplicate arrivals are
// tolerated; a duplicate index overwrites instead of double-counting. An
// entry is removed as soon as its declared total is reached.
type TransferStore struct {
	mu      sync.Mutex
	pending map[transferKey]*transfer
}

// NewTransferStore returns an empty chunk accumulator.
func NewTransferStore() *TransferStore {
	return &TransferStore{pending: make(map[transferKey]*transfer)}
}

// Put records one chunk and reports how many distinct chunks have arrived and
// whether the transfer just completed. On completion the accumulator entry is
// dropped.
func (s *TransferStore) Put(connectionID, fileName string, index, total int, chunk []byte) (received int, complete bool) {
	key := transferKey{connectionID: connectionID, fileName: fileName}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[key]
	if !ok {
		t = &transfer{total: total, chunks: make(map[int][]byte, total)}
		s.pending[key] = t
	}
	t.chunks[index] = chunk

	received = len(t.chunks)
	if t.total > 0 && received >= t.total {
		delete(s.pending, key)
		return received, true
	}
	return received, false
}

// DropAll abandons every pending transfer for a connection. Called on
// disconnect so half-finished uploads do not leak.
func (s *TransferStore) DropAll(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.pending {
		if key.connectionID == connectionID {
			delete(s.pending, key)
		}
	}
}

// PendingCount reports how many transfers are in flight, across connections.
func (s *TransferStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
