package session

import (
	"errors"
	"testing"

	"github.com/psoares/flashdeck/internal/api"
)

func deck(n int) []api.Flashcard {
	cards := make([]api.Flashcard, n)
	for i := range cards {
		cards[i] = api.Flashcard{ID: i + 1, Front: "q", Back: "a"}
	}
	return cards
}

func TestCircularAdvanceWrapsToStart(t *testing.T) {
	s := New(deck(3), ModeCircular, nil, nil)
	for i := 0; i < 3; i++ {
		s.Advance()
	}
	if s.Position() != 0 {
		t.Fatalf("expected wrap to position 0, got %d", s.Position())
	}
	if s.Complete() {
		t.Fatal("circular session must never complete")
	}
}

func TestAdvanceMarksEachCardOnce(t *testing.T) {
	s := New(deck(2), ModeCircular, nil, nil)

	id, ok := s.Advance()
	if !ok || id != 1 {
		t.Fatalf("first advance should mark card 1, got id=%d ok=%v", id, ok)
	}
	s.Advance()

	// Second lap over already-studied cards produces no new marks.
	if id, ok := s.Advance(); ok {
		t.Fatalf("revisited card should not be re-marked, got id=%d", id)
	}
	if s.StudiedCount() != 2 {
		t.Fatalf("studied count = %d, want 2", s.StudiedCount())
	}
}

func TestSeededStudiedCardsAreNotRemarked(t *testing.T) {
	s := New(deck(3), ModeCircular, []int{1, 2}, nil)
	if s.StudiedCount() != 2 {
		t.Fatalf("seed not applied, studied count = %d", s.StudiedCount())
	}
	if id, ok := s.Advance(); ok {
		t.Fatalf("seeded card should not produce a mark, got id=%d", id)
	}
	if id, ok := s.Advance(); ok {
		t.Fatalf("seeded card should not produce a mark, got id=%d", id)
	}
	if id, ok := s.Advance(); !ok || id != 3 {
		t.Fatalf("unseeded card should be marked, got id=%d ok=%v", id, ok)
	}
}

func TestRetreatCircularWraps(t *testing.T) {
	s := New(deck(4), ModeCircular, nil, nil)
	s.Retreat()
	if s.Position() != 3 {
		t.Fatalf("retreat from 0 should wrap to 3, got %d", s.Position())
	}
}

func TestRetreatClearsReveal(t *testing.T) {
	s := New(deck(2), ModeCircular, nil, nil)
	s.Flip()
	if !s.Revealed() {
		t.Fatal("flip did not reveal")
	}
	s.Retreat()
	if s.Revealed() {
		t.Fatal("retreat should land on the front face")
	}
}

func TestLinearRunsToCompletion(t *testing.T) {
	s := New(deck(3), ModeLinear, nil, nil)
	for i := 0; i < 3; i++ {
		s.Advance()
	}
	if !s.Complete() {
		t.Fatal("linear session should complete after the last card")
	}
	if s.Position() != s.Len() {
		t.Fatalf("completed position = %d, want %d", s.Position(), s.Len())
	}
	if _, ok := s.Current(); ok {
		t.Fatal("no current card past the end")
	}
	if _, ok := s.Advance(); ok {
		t.Fatal("advance past completion must be a no-op")
	}
}

func TestLinearRetreatReopensLastCard(t *testing.T) {
	s := New(deck(3), ModeLinear, nil, nil)
	for i := 0; i < 3; i++ {
		s.Advance()
	}
	s.Retreat()
	if s.Complete() {
		t.Fatal("retreat from the summary should reopen the session")
	}
	if s.Position() != 2 {
		t.Fatalf("position = %d, want 2", s.Position())
	}
}

func TestLinearRetreatClampsAtStart(t *testing.T) {
	s := New(deck(3), ModeLinear, nil, nil)
	s.Retreat()
	if s.Position() != 0 {
		t.Fatalf("linear retreat at start should stay at 0, got %d", s.Position())
	}
}

func TestSelfAssessmentTally(t *testing.T) {
	s := New(deck(4), ModeLinear, nil, nil)
	s.RecordSelfAssessment(true)
	s.RecordSelfAssessment(true)
	s.RecordSelfAssessment(false)

	correct, incorrect := s.Tally()
	if correct != 2 || incorrect != 1 {
		t.Fatalf("tally = %d/%d, want 2/1", correct, incorrect)
	}
	if got, want := s.Accuracy(), 2.0/3.0; got != want {
		t.Fatalf("accuracy = %v, want %v", got, want)
	}
	if s.Position() != 3 {
		t.Fatalf("assessments should advance, position = %d", s.Position())
	}
}

func TestAccuracyZeroWhenUnassessed(t *testing.T) {
	s := New(deck(2), ModeCircular, nil, nil)
	if s.Accuracy() != 0 {
		t.Fatalf("accuracy without assessments = %v, want 0", s.Accuracy())
	}
}

func TestResetKeepsStudiedSet(t *testing.T) {
	s := New(deck(3), ModeLinear, nil, nil)
	s.RecordSelfAssessment(true)
	s.Advance()
	s.Reset()

	if s.Position() != 0 || s.Revealed() || s.Complete() {
		t.Fatalf("reset did not restart: pos=%d revealed=%v complete=%v",
			s.Position(), s.Revealed(), s.Complete())
	}
	if correct, incorrect := s.Tally(); correct != 0 || incorrect != 0 {
		t.Fatalf("reset should clear the tally, got %d/%d", correct, incorrect)
	}
	if s.StudiedCount() != 2 {
		t.Fatalf("reset must keep the studied set, count = %d", s.StudiedCount())
	}
}

func TestFlipCueRefusalIsSwallowed(t *testing.T) {
	calls := 0
	cue := func() error {
		calls++
		return errors.New("no audio device")
	}
	s := New(deck(1), ModeCircular, nil, cue)

	s.Flip()
	if !s.Revealed() {
		t.Fatal("flip must land despite the cue refusing")
	}
	s.Flip()
	if s.Revealed() {
		t.Fatal("second flip should show the front again")
	}
	if calls != 2 {
		t.Fatalf("cue calls = %d, want 2", calls)
	}
}

func TestEmptyDeckIsInert(t *testing.T) {
	s := New(nil, ModeCircular, nil, nil)
	s.Flip()
	if s.Revealed() {
		t.Fatal("flip on empty deck should be a no-op")
	}
	if _, ok := s.Advance(); ok {
		t.Fatal("advance on empty deck should be a no-op")
	}
	s.Retreat()
	if _, ok := s.Current(); ok {
		t.Fatal("empty deck has no current card")
	}
}
