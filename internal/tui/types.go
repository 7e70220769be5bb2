package tui

import (
	"time"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/library"
	"github.com/psoares/flashdeck/internal/monitor"
)

type stage int

const (
	stageLogin stage = iota
	stageRegister
	stageLibrary
	stageCreate
	stageProcessing
	stageStudy
	stageChat
	stageStats
)

const heroTagline = "Turn any document into a study deck."

const (
	minCardWidth  = 40
	maxCardWidth  = 72
	minDeckCards  = 5
	maxDeckCards  = 30
	deckCardsStep = 5
)

var difficultyLevels = []string{"easy", "medium", "hard"}

// createTab selects the material source inside the creation wizard.
type createTab int

const (
	tabText createTab = iota
	tabFile
)

// chatExchange is one question/answer pair in the card chat transcript.
type chatExchange struct {
	Question string
	Answer   string
	Error    string
	Pending  bool
	AskedAt  time.Time
}

type loginResultMsg struct {
	token api.Token
	err   error
}

type registerResultMsg struct {
	user api.User
	err  error
}

// libraryTickMsg fires when the background refresh interval elapses. The
// refresh job itself is only dispatched from Update, so two never overlap.
type libraryTickMsg struct {
	gen int
}

type libraryResultMsg struct {
	gen  int
	cold bool
	snap library.Snapshot
	err  error
}

type monitorTickMsg struct {
	gen int
}

type monitorResultMsg struct {
	gen    int
	update monitor.Update
}

type createResultMsg struct {
	doc api.Document
	err error
}

type studyLoadedMsg struct {
	gen   int
	doc   api.Document
	cards []api.Flashcard
	err   error
}

// studiedSyncMsg reports the outcome of persisting one studied mark. The
// local studied set was already updated optimistically; a failure here is
// logged and surfaced but never rolled back.
type studiedSyncMsg struct {
	gen    int
	cardID int
	err    error
}

type cancelResultMsg struct {
	documentID int
	sent       bool
	err        error
}

type chatHistoryMsg struct {
	gen    int
	cardID int
	items  []api.Conversation
	err    error
}

type chatReplyMsg struct {
	gen    int
	cardID int
	index  int
	reply  api.ChatResponse
	err    error
}

type statsResultMsg struct {
	gen   int
	stats api.ProgressStats
	err   error
}

// cardTransitionMsg ends the brief visual hold between cards. Only the
// rendered face waits for it; the session position moved when the key landed.
type cardTransitionMsg struct {
	gen int
	seq int
}
