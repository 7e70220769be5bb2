package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/logging"
)

type fakeBackend struct {
	docs     []api.Document
	listErr  error
	cards    map[int][]api.Flashcard
	cardErrs map[int]error
}

func (b *fakeBackend) ListDocuments(ctx context.Context) ([]api.Document, error) {
	return b.docs, b.listErr
}

func (b *fakeBackend) ListFlashcards(ctx context.Context, documentID int) ([]api.Flashcard, error) {
	if err := b.cardErrs[documentID]; err != nil {
		return nil, err
	}
	return b.cards[documentID], nil
}

func stamped(id int, status api.Status, created time.Time) api.Document {
	return api.Document{ID: id, Status: status, CreatedAt: api.Timestamp{Time: created}}
}

func newTestPoller(backend Backend, pageSize int) *Poller {
	return NewPoller(backend, time.Second, pageSize, logging.Nop())
}

func TestRefreshEnrichesCompletedDocuments(t *testing.T) {
	now := time.Now()
	backend := &fakeBackend{
		docs: []api.Document{
			stamped(1, api.StatusCompleted, now),
			stamped(2, api.StatusProcessing, now.Add(time.Minute)),
			stamped(3, api.StatusCompleted, now.Add(2*time.Minute)),
		},
		cards: map[int][]api.Flashcard{
			1: {{ID: 10}, {ID: 11}},
			3: {},
		},
	}
	p := newTestPoller(backend, 8)

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !snap.Processing {
		t.Fatal("a processing document should keep the poller active")
	}

	byID := map[int]Item{}
	for _, item := range snap.Items {
		byID[item.ID] = item
	}
	if got := byID[1]; got.CardCount != 2 || !got.Ready {
		t.Fatalf("doc 1 enrichment = count %d ready %v, want 2/true", got.CardCount, got.Ready)
	}
	if got := byID[3]; got.CardCount != 0 || got.Ready {
		t.Fatalf("empty completed doc should not be ready, got count %d ready %v", got.CardCount, got.Ready)
	}
	if got := byID[2]; got.CardCount != 0 {
		t.Fatalf("processing doc should not be enriched, count = %d", got.CardCount)
	}
}

func TestEnrichmentFailureDefaultsToZero(t *testing.T) {
	now := time.Now()
	backend := &fakeBackend{
		docs: []api.Document{
			stamped(1, api.StatusCompleted, now),
			stamped(2, api.StatusCompleted, now.Add(time.Minute)),
		},
		cards:    map[int][]api.Flashcard{2: {{ID: 20}}},
		cardErrs: map[int]error{1: errors.New("boom")},
	}
	p := newTestPoller(backend, 8)

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("one failing enrichment must not fail the refresh: %v", err)
	}
	if len(snap.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(snap.Items))
	}
	for _, item := range snap.Items {
		if item.ID == 1 && (item.CardCount != 0 || item.Ready) {
			t.Fatalf("failed enrichment should default to zero, got count %d ready %v",
				item.CardCount, item.Ready)
		}
	}
}

func TestSnapshotSortedNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backend := &fakeBackend{
		docs: []api.Document{
			stamped(1, api.StatusCompleted, base),
			stamped(2, api.StatusCompleted, base.Add(time.Hour)),
			stamped(3, api.StatusCompleted, base.Add(30*time.Minute)),
		},
		cards: map[int][]api.Flashcard{},
	}
	p := newTestPoller(backend, 8)

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got := []int{snap.Items[0].ID, snap.Items[1].ID, snap.Items[2].ID}
	want := []int{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestActiveStopsWhenNothingProcessing(t *testing.T) {
	backend := &fakeBackend{
		docs:  []api.Document{stamped(1, api.StatusCompleted, time.Now())},
		cards: map[int][]api.Flashcard{},
	}
	p := newTestPoller(backend, 8)

	snap, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	p.Apply(snap, true)
	if p.Active() {
		t.Fatal("no processing documents, poller should go inactive")
	}
}

func TestRefreshErrorPropagates(t *testing.T) {
	p := newTestPoller(&fakeBackend{listErr: errors.New("offline")}, 8)
	if _, err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected list error to propagate")
	}
}

func manyItems(n int) Snapshot {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Document: api.Document{ID: i + 1}}
	}
	return Snapshot{Items: items}
}

func TestPaginationWindows(t *testing.T) {
	p := newTestPoller(&fakeBackend{}, 8)
	p.Apply(manyItems(20), true)

	if p.PageCount() != 3 {
		t.Fatalf("page count = %d, want 3", p.PageCount())
	}
	if got := len(p.VisibleItems()); got != 8 {
		t.Fatalf("first page size = %d, want 8", got)
	}
	p.NextPage()
	p.NextPage()
	if got := len(p.VisibleItems()); got != 4 {
		t.Fatalf("last page size = %d, want 4", got)
	}
	p.NextPage()
	if p.Page() != 2 {
		t.Fatalf("page should clamp at the end, got %d", p.Page())
	}
	p.PrevPage()
	p.PrevPage()
	p.PrevPage()
	if p.Page() != 0 {
		t.Fatalf("page should clamp at the start, got %d", p.Page())
	}
}

func TestBackgroundApplyKeepsPage(t *testing.T) {
	p := newTestPoller(&fakeBackend{}, 8)
	p.Apply(manyItems(20), true)
	p.NextPage()

	p.Apply(manyItems(20), false)
	if p.Page() != 1 {
		t.Fatalf("warm apply moved the page to %d", p.Page())
	}

	// A shrinking snapshot clamps rather than leaving the user stranded.
	p.Apply(manyItems(5), false)
	if p.Page() != 0 {
		t.Fatalf("page not clamped after shrink, got %d", p.Page())
	}

	p.Apply(manyItems(20), true)
	if p.Page() != 0 {
		t.Fatalf("cold apply should reset to the first page, got %d", p.Page())
	}
}
