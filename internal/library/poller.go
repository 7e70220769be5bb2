// Package library keeps the user's document collection fresh while any item
// is still being processed, and guards cancel requests against duplication.
package library

import (
	"context"
	"sort"
	"time"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/logging"
)

// Backend is the slice of the gateway the poller needs.
type Backend interface {
	ListDocuments(ctx context.Context) ([]api.Document, error)
	ListFlashcards(ctx context.Context, documentID int) ([]api.Flashcard, error)
}

// Item is a document annotated with client-derived fields.
type Item struct {
	api.Document
	// CardCount is the flashcard count confirmed by an actual fetch, not the
	// server's derived counter.
	CardCount int
	// Ready means the set can be opened for study: COMPLETED with cards.
	Ready bool
}

// Snapshot is the result of one collection fetch, produced by Refresh and
// folded in by Apply.
type Snapshot struct {
	Items []Item
	// Processing means at least one document is still PROCESSING, so the
	// owner should keep scheduling background refreshes.
	Processing bool
}

// Poller refreshes the collection and reports whether background polling
// should keep running. Refresh performs the fetches and is safe to run on a
// worker goroutine; Apply folds the snapshot in and belongs on the event-loop
// goroutine. The poller holds no timer itself; the owner schedules ticks
// while Active returns true and must never run two intervals at once.
type Poller struct {
	backend  Backend
	log      *logging.Logger
	interval time.Duration
	pageSize int

	items  []Item
	active bool
	page   int
}

// NewPoller builds a poller over the given backend.
func NewPoller(backend Backend, interval time.Duration, pageSize int, log *logging.Logger) *Poller {
	return &Poller{
		backend:  backend,
		log:      log,
		interval: interval,
		pageSize: pageSize,
	}
}

// Interval returns the background refresh spacing.
func (p *Poller) Interval() time.Duration { return p.interval }

// Items returns the last fetched snapshot, newest first.
func (p *Poller) Items() []Item { return p.items }

// Active reports whether the last snapshot still contains a PROCESSING
// document, i.e. whether the owner should schedule another tick.
func (p *Poller) Active() bool { return p.active }

// Refresh fetches the full collection and enriches every COMPLETED document
// with its real flashcard count. Per-item enrichment failures default the
// count to zero instead of aborting the refresh.
func (p *Poller) Refresh(ctx context.Context) (Snapshot, error) {
	docs, err := p.backend.ListDocuments(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	items := make([]Item, 0, len(docs))
	processing := false
	for _, doc := range docs {
		item := Item{Document: doc}
		if doc.Status == api.StatusProcessing {
			processing = true
		}
		if doc.Status == api.StatusCompleted {
			cards, err := p.backend.ListFlashcards(ctx, doc.ID)
			if err != nil {
				p.log.Warn("flashcard count fetch failed", "document_id", doc.ID, "error", err)
			} else {
				item.CardCount = len(cards)
				item.Ready = len(cards) > 0
			}
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt.Time)
	})

	return Snapshot{Items: items, Processing: processing}, nil
}

// Apply folds a snapshot into the poller. cold resets pagination to the first
// page; background ticks pass false so they never yank the user away from the
// page they are browsing.
func (p *Poller) Apply(snap Snapshot, cold bool) {
	p.items = snap.Items
	p.active = snap.Processing
	if cold {
		p.page = 0
	}
	p.clampPage()
}

// Page returns the current zero-based page index.
func (p *Poller) Page() int { return p.page }

// PageCount returns how many pages the current snapshot spans.
func (p *Poller) PageCount() int {
	if len(p.items) == 0 {
		return 1
	}
	return (len(p.items) + p.pageSize - 1) / p.pageSize
}

// VisibleItems returns the slice of the sorted snapshot for the current page.
func (p *Poller) VisibleItems() []Item {
	start := p.page * p.pageSize
	if start >= len(p.items) {
		return nil
	}
	end := start + p.pageSize
	if end > len(p.items) {
		end = len(p.items)
	}
	return p.items[start:end]
}

// NextPage advances pagination, clamped to the last page.
func (p *Poller) NextPage() {
	p.page++
	p.clampPage()
}

// PrevPage moves pagination back, clamped to the first page.
func (p *Poller) PrevPage() {
	p.page--
	p.clampPage()
}

func (p *Poller) clampPage() {
	if max := p.PageCount() - 1; p.page > max {
		p.page = max
	}
	if p.page < 0 {
		p.page = 0
	}
}
