package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/logging"
)

type fakeGateway struct {
	docs      []api.Document
	doc       api.Document
	docErr    error
	cards     []api.Flashcard
	cardsErr  error
	markErr   error
	markCalls []int
	chatReply   api.ChatResponse
	chatErr     error
	history     []api.Conversation
	stats       api.ProgressStats
	statsOffset int
}

func (g *fakeGateway) Login(ctx context.Context, username, password string) (api.Token, error) {
	return api.Token{AccessToken: "tok"}, nil
}

func (g *fakeGateway) Register(ctx context.Context, username, email, password string) (api.User, error) {
	return api.User{Username: username, Email: email}, nil
}

func (g *fakeGateway) CurrentUser(ctx context.Context) (api.User, error) {
	return api.User{Username: "ana"}, nil
}

func (g *fakeGateway) ListDocuments(ctx context.Context) ([]api.Document, error) {
	return g.docs, g.docErr
}

func (g *fakeGateway) GetDocument(ctx context.Context, id int) (api.Document, error) {
	return g.doc, g.docErr
}

func (g *fakeGateway) UploadDocument(ctx context.Context, filename string, file []byte, title string, numFlashcards int, difficulty string) (api.Document, error) {
	return g.doc, g.docErr
}

func (g *fakeGateway) CreateDocumentFromText(ctx context.Context, text, title string, numFlashcards int, difficulty string) (api.Document, error) {
	return g.doc, g.docErr
}

func (g *fakeGateway) CancelProcessing(ctx context.Context, id int) (string, error) {
	return "cancelled", nil
}

func (g *fakeGateway) ListFlashcards(ctx context.Context, documentID int) ([]api.Flashcard, error) {
	return g.cards, g.cardsErr
}

func (g *fakeGateway) MarkStudied(ctx context.Context, flashcardID int) error {
	g.markCalls = append(g.markCalls, flashcardID)
	return g.markErr
}

func (g *fakeGateway) Chat(ctx context.Context, flashcardID int, message string) (api.ChatResponse, error) {
	return g.chatReply, g.chatErr
}

func (g *fakeGateway) ListConversations(ctx context.Context, flashcardID int) ([]api.Conversation, error) {
	return g.history, nil
}

func (g *fakeGateway) ProgressStats(ctx context.Context, utcOffsetMinutes int) (api.ProgressStats, error) {
	g.statsOffset = utcOffsetMinutes
	return g.stats, nil
}

type fakeTokens struct {
	token  string
	clears int
}

func (f *fakeTokens) Token() string { return f.token }

func (f *fakeTokens) Clear() error {
	f.token = ""
	f.clears++
	return nil
}

func newTestModel(t *testing.T) (*model, *fakeGateway, *fakeTokens) {
	t.Helper()
	gateway := &fakeGateway{}
	tokens := &fakeTokens{token: "tok"}
	m := New(Config{
		Gateway: gateway,
		Tokens:  tokens,
		Log:     logging.Nop(),
	}).(*model)
	return m, gateway, tokens
}

func TestStudyLoadJobRejectsEmptyDeck(t *testing.T) {
	gateway := &fakeGateway{
		doc:   api.Document{ID: 3, Status: api.StatusCompleted, FilePath: "uploads/empty_set.pdf"},
		cards: nil,
	}
	runner := studyLoadJob(gateway, time.Second, 1, 3)

	msg, err := runner(context.Background())
	if err == nil {
		t.Fatal("empty deck should fail the load")
	}
	loaded, ok := msg.(studyLoadedMsg)
	if !ok {
		t.Fatalf("msg type = %T", msg)
	}
	if loaded.err == nil {
		t.Fatal("message should carry the error")
	}
}

func TestStudyLoadJobReturnsDeck(t *testing.T) {
	gateway := &fakeGateway{
		doc:   api.Document{ID: 3, Status: api.StatusCompleted},
		cards: []api.Flashcard{{ID: 1}, {ID: 2}},
	}
	runner := studyLoadJob(gateway, time.Second, 4, 3)

	msg, err := runner(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded := msg.(studyLoadedMsg)
	if loaded.gen != 4 || len(loaded.cards) != 2 {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestMarkStudiedJobReportsOutcome(t *testing.T) {
	gateway := &fakeGateway{markErr: errors.New("offline")}
	runner := markStudiedJob(gateway, time.Second, 6, 11)

	msg, err := runner(context.Background())
	if err == nil {
		t.Fatal("expected the backend error")
	}
	sync := msg.(studiedSyncMsg)
	if sync.gen != 6 || sync.cardID != 11 || sync.err == nil {
		t.Fatalf("sync = %+v", sync)
	}
	if len(gateway.markCalls) != 1 || gateway.markCalls[0] != 11 {
		t.Fatalf("mark calls = %v", gateway.markCalls)
	}
}

func TestStatsJobSendsWestPositiveOffset(t *testing.T) {
	gateway := &fakeGateway{}
	runner := statsJob(gateway, time.Second, 2)

	if _, err := runner(context.Background()); err != nil {
		t.Fatalf("stats: %v", err)
	}
	_, offsetSeconds := time.Now().Zone()
	if want := -offsetSeconds / 60; gateway.statsOffset != want {
		t.Fatalf("offset = %d, want %d (minutes west of UTC)", gateway.statsOffset, want)
	}
}

func TestJobBusWrapsRunnerOutcome(t *testing.T) {
	bus := newJobBus(logging.Nop())
	cmd := bus.Start(jobKindStats, func(context.Context) (tea.Msg, error) {
		return statsResultMsg{gen: 1}, nil
	})
	if cmd == nil {
		t.Fatal("start should produce a command")
	}
}
