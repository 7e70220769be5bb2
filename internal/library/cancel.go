package library

import (
	"context"
	"sync"

	"github.com/psoares/flashdeck/internal/logging"
)

// CancelBackend is the slice of the gateway the canceller needs.
type CancelBackend interface {
	CancelProcessing(ctx context.Context, id int) (string, error)
}

// Canceller serializes cancel requests per document: while one is in flight,
// further requests for the same id are no-ops. Commands run on their own
// goroutines, hence the mutex.
type Canceller struct {
	backend CancelBackend
	log     *logging.Logger

	mu       sync.Mutex
	inflight map[int]struct{}
}

// NewCanceller builds a canceller over the given backend.
func NewCanceller(backend CancelBackend, log *logging.Logger) *Canceller {
	return &Canceller{
		backend:  backend,
		log:      log,
		inflight: make(map[int]struct{}),
	}
}

// Cancel issues the cancel request unless one is already in flight for this
// document. The first return value reports whether a request was actually
// sent. The in-flight mark is removed on completion regardless of outcome, so
// a failed cancel can be retried.
func (c *Canceller) Cancel(ctx context.Context, documentID int) (bool, error) {
	c.mu.Lock()
	if _, busy := c.inflight[documentID]; busy {
		c.mu.Unlock()
		return false, nil
	}
	c.inflight[documentID] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, documentID)
		c.mu.Unlock()
	}()

	if _, err := c.backend.CancelProcessing(ctx, documentID); err != nil {
		c.log.Warn("cancel request failed", "document_id", documentID, "error", err)
		return true, err
	}
	c.log.Info("processing cancelled", "document_id", documentID)
	return true, nil
}

// Cancelling reports whether a cancel request is currently in flight for the
// document, so the UI can disable the affordance.
func (c *Canceller) Cancelling(documentID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[documentID]
	return busy
}
