// Package monitor drives a freshly submitted document from PROCESSING to a
// confirmed usable terminal state. The backend flips a document's status to
// COMPLETED before its flashcard rows are necessarily visible, so the monitor
// only reports ready once a flashcard fetch actually returns cards.
package monitor

import (
	"context"
	"time"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/logging"
)

// Backend is the slice of the gateway the monitor needs.
type Backend interface {
	GetDocument(ctx context.Context, id int) (api.Document, error)
	ListFlashcards(ctx context.Context, documentID int) ([]api.Flashcard, error)
}

// Phase is the monitor's own state, distinct from the document status: a
// COMPLETED document without visible flashcards is still AwaitingFlashcards.
type Phase int

const (
	// PhasePolling: the document is processing, or no tick has landed yet.
	PhasePolling Phase = iota
	// PhaseAwaitingFlashcards: status says COMPLETED but no cards are
	// retrievable yet; polling continues.
	PhaseAwaitingFlashcards
	// PhaseReady: COMPLETED with a confirmed non-empty flashcard set.
	PhaseReady
	// PhaseErrored: the backend reported FAILED.
	PhaseErrored
	// PhaseCancelled: the backend reported CANCELLED.
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingFlashcards:
		return "awaiting_flashcards"
	case PhaseReady:
		return "ready"
	case PhaseErrored:
		return "errored"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "polling"
	}
}

// Terminal reports whether the phase is an end state.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseErrored || p == PhaseCancelled
}

// Update is the outcome of one poll tick.
type Update struct {
	Phase    Phase
	Document api.Document
	// CardCount is the confirmed flashcard count, set once Phase is PhaseReady.
	CardCount int
	// Transient holds a swallowed fetch error. Phase and Document are
	// meaningless in that case; Apply keeps the previous state and the caller
	// simply schedules the next tick.
	Transient error
}

// Monitor polls one document. Tick performs the fetches and is safe to run on
// a worker goroutine; Apply folds the result into the monitor's state and
// belongs on the event-loop goroutine. Ticks must be issued sequentially: the
// caller schedules the next one only after the previous result was applied,
// so in-flight fetches for the same document never overlap.
type Monitor struct {
	backend  Backend
	log      *logging.Logger
	docID    int
	interval time.Duration

	phase     Phase
	doc       api.Document
	cardCount int
}

// New builds a monitor for the given document. The submitted snapshot seeds
// the progress display before the first tick lands.
func New(backend Backend, submitted api.Document, interval time.Duration, log *logging.Logger) *Monitor {
	return &Monitor{
		backend:  backend,
		log:      log.With("document_id", submitted.ID),
		docID:    submitted.ID,
		interval: interval,
		phase:    PhasePolling,
		doc:      submitted,
	}
}

// DocumentID returns the monitored document's id.
func (m *Monitor) DocumentID() int { return m.docID }

// Interval returns the poll spacing.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Phase returns the last applied phase.
func (m *Monitor) Phase() Phase { return m.phase }

// Document returns the latest applied snapshot.
func (m *Monitor) Document() api.Document { return m.doc }

// CardCount returns the confirmed flashcard count once ready.
func (m *Monitor) CardCount() int { return m.cardCount }

// Done reports whether polling should stop.
func (m *Monitor) Done() bool { return m.phase.Terminal() }

// Tick performs one full poll cycle: fetch the document and, when the status
// is COMPLETED, confirm the flashcards exist before declaring ready. Fetch
// errors are swallowed and logged; only a FAILED status is fatal.
func (m *Monitor) Tick(ctx context.Context) Update {
	doc, err := m.backend.GetDocument(ctx, m.docID)
	if err != nil {
		m.log.Warn("poll tick failed, retrying next interval", "error", err)
		return Update{Transient: err}
	}

	switch doc.Status {
	case api.StatusFailed:
		return Update{Phase: PhaseErrored, Document: doc}
	case api.StatusCancelled:
		return Update{Phase: PhaseCancelled, Document: doc}
	case api.StatusCompleted:
		return m.confirmFlashcards(ctx, doc)
	default:
		return Update{Phase: PhasePolling, Document: doc}
	}
}

// Apply folds a tick result into the monitor. Transient results leave the
// state untouched.
func (m *Monitor) Apply(u Update) {
	if u.Transient != nil {
		return
	}
	m.phase = u.Phase
	m.doc = u.Document
	if u.Phase == PhaseReady {
		m.cardCount = u.CardCount
	}
}

// confirmFlashcards bridges the gap between the status flip and the card rows
// becoming visible. An error or an empty result keeps the monitor polling.
func (m *Monitor) confirmFlashcards(ctx context.Context, doc api.Document) Update {
	cards, err := m.backend.ListFlashcards(ctx, m.docID)
	if err != nil {
		m.log.Warn("document completed but flashcard fetch failed, keeping watch", "error", err)
		return Update{Phase: PhaseAwaitingFlashcards, Document: doc}
	}
	if len(cards) == 0 {
		m.log.Info("document completed but no flashcards visible yet, keeping watch")
		return Update{Phase: PhaseAwaitingFlashcards, Document: doc}
	}
	m.log.Info("flashcards confirmed", "count", len(cards))
	return Update{Phase: PhaseReady, Document: doc, CardCount: len(cards)}
}
