// Package session holds the ephemeral state of studying one document's
// flashcards: position, reveal state, the optimistic studied set, and the
// self-assessment tally. It is a pure state machine; network persistence of
// study events is dispatched by the caller with the ids Advance returns.
package session

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/psoares/flashdeck/internal/api"
)

// TransitionDelay is how long the view waits before showing the next card, so
// the flip-back animation can visually complete. The logical position updates
// immediately; only the rendered card lags.
const TransitionDelay = 150 * time.Millisecond

// Mode selects the end-of-deck behavior.
type Mode int

const (
	// ModeCircular wraps from the last card back to the first, forever.
	ModeCircular Mode = iota
	// ModeLinear ends the session past the last card and shows a summary.
	ModeLinear
)

// Cue is a best-effort presentation side effect (the card-flip sound). A
// refusal from the host environment must never fail the flip.
type Cue func() error

// Session is the state of one study run over a fixed card sequence.
type Session struct {
	id   string
	mode Mode

	cards    []api.Flashcard
	pos      int
	revealed bool
	complete bool

	studied   map[int]struct{}
	correct   int
	incorrect int

	cue Cue
}

// New builds a session over cards. seedStudied carries the ids the server
// already knows were studied, so progress display survives reopening a set.
func New(cards []api.Flashcard, mode Mode, seedStudied []int, cue Cue) *Session {
	id, err := gonanoid.New()
	if err != nil {
		id = "session"
	}
	studied := make(map[int]struct{}, len(seedStudied))
	for _, cardID := range seedStudied {
		studied[cardID] = struct{}{}
	}
	return &Session{
		id:      id,
		mode:    mode,
		cards:   cards,
		studied: studied,
		cue:     cue,
	}
}

// ID is an opaque identifier used for log correlation.
func (s *Session) ID() string { return s.id }

// Mode returns the configured end-of-deck behavior.
func (s *Session) Mode() Mode { return s.mode }

// Len returns the number of cards in the sequence.
func (s *Session) Len() int { return len(s.cards) }

// Position returns the current card index. In linear mode a completed session
// reports Len(), the "past end" position.
func (s *Session) Position() int { return s.pos }

// Revealed reports whether the back of the card is showing.
func (s *Session) Revealed() bool { return s.revealed }

// Complete reports whether a linear session has run past its last card.
func (s *Session) Complete() bool { return s.complete }

// Current returns the card at the current position.
func (s *Session) Current() (api.Flashcard, bool) {
	if s.pos < 0 || s.pos >= len(s.cards) {
		return api.Flashcard{}, false
	}
	return s.cards[s.pos], true
}

// Flip toggles which face is showing and plays the cue. Cue refusal (no
// audio device, no prior interaction) is swallowed; the toggle always lands.
func (s *Session) Flip() {
	if len(s.cards) == 0 || s.complete {
		return
	}
	if s.cue != nil {
		_ = s.cue()
	}
	s.revealed = !s.revealed
}

// Advance marks the current card studied and moves forward. The returned id,
// when ok, is a card whose studied state the caller should persist remotely;
// the local set is updated first and is never rolled back on a failed call.
// Cards already in the studied set produce no id (set semantics).
func (s *Session) Advance() (markID int, ok bool) {
	if len(s.cards) == 0 || s.complete {
		return 0, false
	}
	card := s.cards[s.pos]
	if _, done := s.studied[card.ID]; !done {
		s.studied[card.ID] = struct{}{}
		markID, ok = card.ID, true
	}
	s.revealed = false
	s.moveForward()
	return markID, ok
}

// Retreat moves back one card without touching the studied set.
func (s *Session) Retreat() {
	if len(s.cards) == 0 {
		return
	}
	s.revealed = false
	if s.mode == ModeCircular {
		s.pos = (s.pos - 1 + len(s.cards)) % len(s.cards)
		return
	}
	if s.complete {
		s.complete = false
		s.pos = len(s.cards) - 1
		return
	}
	if s.pos > 0 {
		s.pos--
	}
}

// RecordSelfAssessment tallies a correct/incorrect judgement and then behaves
// exactly like Advance for the studied set and the position.
func (s *Session) RecordSelfAssessment(correct bool) (markID int, ok bool) {
	if len(s.cards) == 0 || s.complete {
		return 0, false
	}
	if correct {
		s.correct++
	} else {
		s.incorrect++
	}
	return s.Advance()
}

// Tally returns the session's self-assessment counts.
func (s *Session) Tally() (correct, incorrect int) {
	return s.correct, s.incorrect
}

// Accuracy returns the fraction of assessed cards judged correct, or zero
// when nothing was assessed yet.
func (s *Session) Accuracy() float64 {
	total := s.correct + s.incorrect
	if total == 0 {
		return 0
	}
	return float64(s.correct) / float64(total)
}

// Studied reports whether the given card id is in the studied set.
func (s *Session) Studied(cardID int) bool {
	_, done := s.studied[cardID]
	return done
}

// StudiedCount returns the size of the studied set, seed included.
func (s *Session) StudiedCount() int { return len(s.studied) }

// Reset restarts the run: position, reveal state, tally and completion are
// cleared. The studied set survives; server-confirmed history is not erased
// by restarting.
func (s *Session) Reset() {
	s.pos = 0
	s.revealed = false
	s.complete = false
	s.correct = 0
	s.incorrect = 0
}

func (s *Session) moveForward() {
	if s.mode == ModeCircular {
		s.pos = (s.pos + 1) % len(s.cards)
		return
	}
	s.pos++
	if s.pos >= len(s.cards) {
		s.pos = len(s.cards)
		s.complete = true
	}
}
