package library

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/psoares/flashdeck/internal/logging"
)

type blockingCancelBackend struct {
	calls   int32
	release chan struct{}
	err     error
}

func (b *blockingCancelBackend) CancelProcessing(ctx context.Context, id int) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	if b.release != nil {
		<-b.release
	}
	return "cancelled", b.err
}

func TestCancelIsSingleFlightPerDocument(t *testing.T) {
	backend := &blockingCancelBackend{release: make(chan struct{})}
	c := NewCanceller(backend, logging.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		sent, err := c.Cancel(context.Background(), 42)
		if !sent || err != nil {
			t.Errorf("first cancel: sent=%v err=%v", sent, err)
		}
	}()

	deadline := time.After(time.Second)
	for !c.Cancelling(42) {
		select {
		case <-deadline:
			t.Fatal("first cancel never became in-flight")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	sent, err := c.Cancel(context.Background(), 42)
	if sent || err != nil {
		t.Fatalf("duplicate cancel should be a silent no-op, got sent=%v err=%v", sent, err)
	}

	close(backend.release)
	<-done

	if got := atomic.LoadInt32(&backend.calls); got != 1 {
		t.Fatalf("backend calls = %d, want 1", got)
	}
	if c.Cancelling(42) {
		t.Fatal("in-flight mark should clear after completion")
	}
}

func TestCancelDifferentDocumentsDoNotBlockEachOther(t *testing.T) {
	backend := &blockingCancelBackend{}
	c := NewCanceller(backend, logging.Nop())

	if sent, err := c.Cancel(context.Background(), 1); !sent || err != nil {
		t.Fatalf("cancel doc 1: sent=%v err=%v", sent, err)
	}
	if sent, err := c.Cancel(context.Background(), 2); !sent || err != nil {
		t.Fatalf("cancel doc 2: sent=%v err=%v", sent, err)
	}
}

func TestFailedCancelCanBeRetried(t *testing.T) {
	backend := &blockingCancelBackend{err: errors.New("conflict")}
	c := NewCanceller(backend, logging.Nop())

	sent, err := c.Cancel(context.Background(), 7)
	if !sent || err == nil {
		t.Fatalf("first cancel should report the failure, got sent=%v err=%v", sent, err)
	}

	backend.err = nil
	sent, err = c.Cancel(context.Background(), 7)
	if !sent || err != nil {
		t.Fatalf("retry should go through, got sent=%v err=%v", sent, err)
	}
	if got := atomic.LoadInt32(&backend.calls); got != 2 {
		t.Fatalf("backend calls = %d, want 2", got)
	}
}
