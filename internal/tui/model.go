package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/library"
	"github.com/psoares/flashdeck/internal/logging"
	"github.com/psoares/flashdeck/internal/monitor"
	"github.com/psoares/flashdeck/internal/session"
	"github.com/psoares/flashdeck/internal/source"
)

// Gateway is the remote surface the TUI drives. *api.Client implements it;
// tests substitute a scripted fake.
type Gateway interface {
	Login(ctx context.Context, username, password string) (api.Token, error)
	Register(ctx context.Context, username, email, password string) (api.User, error)
	CurrentUser(ctx context.Context) (api.User, error)
	ListDocuments(ctx context.Context) ([]api.Document, error)
	GetDocument(ctx context.Context, id int) (api.Document, error)
	UploadDocument(ctx context.Context, filename string, file []byte, title string, numFlashcards int, difficulty string) (api.Document, error)
	CreateDocumentFromText(ctx context.Context, text, title string, numFlashcards int, difficulty string) (api.Document, error)
	CancelProcessing(ctx context.Context, id int) (string, error)
	ListFlashcards(ctx context.Context, documentID int) ([]api.Flashcard, error)
	MarkStudied(ctx context.Context, flashcardID int) error
	Chat(ctx context.Context, flashcardID int, message string) (api.ChatResponse, error)
	ListConversations(ctx context.Context, flashcardID int) ([]api.Conversation, error)
	ProgressStats(ctx context.Context, utcOffsetMinutes int) (api.ProgressStats, error)
}

// TokenStore is the slice of the credential store the TUI needs. Saving is
// the gateway's job; the TUI only checks presence and clears on logout.
type TokenStore interface {
	Token() string
	Clear() error
}

// Config wires runtime options into the TUI program.
type Config struct {
	Gateway Gateway
	Tokens  TokenStore
	Log     *logging.Logger

	MonitorInterval time.Duration
	LibraryInterval time.Duration
	RequestTimeout  time.Duration
	PageSize        int
	SessionMode     session.Mode
	// FlipCue plays the card-flip sound; refusal is always tolerated.
	FlipCue session.Cue
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Log == nil {
		config.Log = logging.Nop()
	}
	if config.MonitorInterval <= 0 {
		config.MonitorInterval = 3 * time.Second
	}
	if config.LibraryInterval <= 0 {
		config.LibraryInterval = 6 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.PageSize <= 0 {
		config.PageSize = 8
	}

	usernameInput := textinput.New()
	usernameInput.Placeholder = "username"
	usernameInput.CharLimit = 64
	usernameInput.Width = 40
	usernameInput.Focus()

	emailInput := textinput.New()
	emailInput.Placeholder = "email"
	emailInput.CharLimit = 120
	emailInput.Width = 40

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.CharLimit = 120
	passwordInput.Width = 40
	passwordInput.EchoMode = textinput.EchoPassword

	titleInput := textinput.New()
	titleInput.Placeholder = "Set title (optional)"
	titleInput.CharLimit = 120
	titleInput.Width = 50

	fileInput := textinput.New()
	fileInput.Placeholder = "/path/to/notes.pdf"
	fileInput.CharLimit = 200
	fileInput.Width = 50

	textArea := textarea.New()
	textArea.Placeholder = "Paste the material to turn into flashcards…"
	textArea.SetWidth(66)
	textArea.SetHeight(8)
	textArea.CharLimit = 0

	chatInput := textinput.New()
	chatInput.Placeholder = "Ask about this card…"
	chatInput.CharLimit = 400
	chatInput.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	chatViewport := viewport.New(80, 14)
	chatViewport.MouseWheelEnabled = true

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 48

	m := &model{
		config:        config,
		jobs:          newJobBus(config.Log),
		stage:         stageLogin,
		usernameInput: usernameInput,
		emailInput:    emailInput,
		passwordInput: passwordInput,
		titleInput:    titleInput,
		fileInput:     fileInput,
		textArea:      textArea,
		chatInput:     chatInput,
		spinner:       spin,
		chatViewport:  chatViewport,
		progressBar:   bar,
		runningJobs:   map[string]jobKind{},
		deckSize:      10,
		infoMessage:   "Sign in to open your library.",
	}
	m.poller = library.NewPoller(config.Gateway, config.LibraryInterval, config.PageSize, config.Log)
	m.canceller = library.NewCanceller(config.Gateway, config.Log)
	if config.Tokens != nil && config.Tokens.Token() != "" {
		m.bootIntoLibrary = true
	}
	return m
}

type model struct {
	config Config
	jobs   *jobBus
	stage  stage

	// gen invalidates in-flight results and pending timers: every stage
	// switch bumps it, and any message stamped with an older value is
	// dropped on arrival.
	gen int

	width  int
	height int

	spinner     spinner.Model
	runningJobs map[string]jobKind

	bootIntoLibrary bool

	usernameInput textinput.Model
	emailInput    textinput.Model
	passwordInput textinput.Model
	authFocus     int
	authBusy      bool

	poller         *library.Poller
	canceller      *library.Canceller
	libraryLoaded  bool
	libraryLoading bool
	// tickPending is true while a library interval timer is outstanding, so
	// manual refresh results never start a second chain.
	tickPending bool
	libCursor   int

	createTab   createTab
	titleInput  textinput.Model
	textArea    textarea.Model
	fileInput   textinput.Model
	createFocus int
	deckSize    int
	difficulty  int
	submitting  bool

	monitor     *monitor.Monitor
	progressBar progress.Model

	sess          *session.Session
	studyDoc      api.Document
	studyLoading  bool
	transitioning bool
	transitionSeq int
	syncFailures  int

	chatCard       api.Flashcard
	chatInput      textinput.Model
	chatHistory    []chatExchange
	chatViewport   viewport.Model
	chatLoading    bool
	historyLoading bool
	chatDirty      bool

	stats        api.ProgressStats
	statsLoading bool
	statsLoaded  bool

	infoMessage  string
	errorMessage string
}

func (m *model) Init() tea.Cmd {
	if m.bootIntoLibrary {
		m.bootIntoLibrary = false
		return tea.Batch(textinput.Blink, m.enterLibrary(true))
	}
	return textinput.Blink
}

// setStage switches screens and invalidates everything the previous screen
// still had in flight.
func (m *model) setStage(s stage) {
	m.stage = s
	m.gen++
	m.errorMessage = ""
}

func (m *model) anyLoading() bool {
	return len(m.runningJobs) > 0 || m.libraryLoading || m.studyLoading ||
		m.submitting || m.authBusy || m.chatLoading || m.historyLoading || m.statsLoading
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.anyLoading() || m.stage == stageProcessing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case jobSignalMsg:
		m.runningJobs[msg.Snapshot.ID] = msg.Snapshot.Kind
		return m, m.spinner.Tick

	case jobResultEnvelope:
		delete(m.runningJobs, msg.Snapshot.ID)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.stage == stageChat {
			var cmd tea.Cmd
			m.chatViewport, cmd = m.chatViewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case loginResultMsg:
		return m.handleLoginResult(msg)
	case registerResultMsg:
		return m.handleRegisterResult(msg)
	case libraryTickMsg:
		return m.handleLibraryTick(msg)
	case libraryResultMsg:
		return m.handleLibraryResult(msg)
	case monitorTickMsg:
		return m.handleMonitorTick(msg)
	case monitorResultMsg:
		return m.handleMonitorResult(msg)
	case createResultMsg:
		return m.handleCreateResult(msg)
	case studyLoadedMsg:
		return m.handleStudyLoaded(msg)
	case studiedSyncMsg:
		return m.handleStudiedSync(msg)
	case cancelResultMsg:
		return m.handleCancelResult(msg)
	case chatHistoryMsg:
		return m.handleChatHistory(msg)
	case chatReplyMsg:
		return m.handleChatReply(msg)
	case statsResultMsg:
		return m.handleStatsResult(msg)
	case cardTransitionMsg:
		if msg.gen == m.gen && msg.seq == m.transitionSeq {
			m.transitioning = false
		}
		return m, nil
	}
	return m, nil
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height

	contentWidth := width - 4
	if contentWidth < minCardWidth {
		contentWidth = minCardWidth
	}
	if contentWidth > maxCardWidth {
		contentWidth = maxCardWidth
	}
	m.textArea.SetWidth(contentWidth)
	m.progressBar.Width = contentWidth
	m.chatViewport.Width = contentWidth + 4
	vpHeight := height - 10
	if vpHeight < 6 {
		vpHeight = 6
	}
	m.chatViewport.Height = vpHeight
	m.chatDirty = true
}

// --- auth ---------------------------------------------------------------

func (m *model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if msg.err != nil {
		m.errorMessage = errText(msg.err)
		return m, nil
	}
	m.passwordInput.SetValue("")
	m.infoMessage = "Signed in."
	return m, m.enterLibrary(true)
}

func (m *model) handleRegisterResult(msg registerResultMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if msg.err != nil {
		m.errorMessage = errText(msg.err)
		return m, nil
	}
	m.setStage(stageLogin)
	m.authFocus = 0
	m.focusAuthField()
	m.infoMessage = "Account created for " + msg.user.Username + ". Sign in to continue."
	return m, nil
}

func (m *model) logout(message string) {
	if m.config.Tokens != nil {
		if err := m.config.Tokens.Clear(); err != nil {
			m.config.Log.Warn("token clear failed", "error", err)
		}
	}
	m.setStage(stageLogin)
	m.sess = nil
	m.monitor = nil
	m.libraryLoaded = false
	m.authFocus = 0
	m.passwordInput.SetValue("")
	m.focusAuthField()
	m.infoMessage = message
}

// sessionExpired intercepts auth failures from any screen and drops back to
// the sign-in form.
func (m *model) sessionExpired(err error) bool {
	if api.KindOf(err) != api.KindAuth {
		return false
	}
	m.logout("Session expired. Sign in again.")
	return true
}

// --- library ------------------------------------------------------------

func (m *model) enterLibrary(cold bool) tea.Cmd {
	m.setStage(stageLibrary)
	m.libraryLoading = true
	m.tickPending = false
	return tea.Batch(
		m.spinner.Tick,
		m.jobs.Start(jobKindLibrary, libraryRefreshJob(m.poller, m.config.RequestTimeout, m.gen, cold)),
	)
}

func (m *model) handleLibraryTick(msg libraryTickMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || m.stage != stageLibrary {
		return m, nil
	}
	m.tickPending = false
	if m.libraryLoading {
		// A manual refresh is in flight; try again next interval.
		return m, m.libraryTickCmd()
	}
	m.libraryLoading = true
	return m, m.jobs.Start(jobKindLibrary, libraryRefreshJob(m.poller, m.config.RequestTimeout, m.gen, false))
}

func (m *model) handleLibraryResult(msg libraryResultMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.libraryLoading = false
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		m.errorMessage = errText(msg.err)
		// One failed cycle never stops the background refresh.
		if m.poller.Active() && !m.tickPending {
			return m, m.libraryTickCmd()
		}
		return m, nil
	}
	m.poller.Apply(msg.snap, msg.cold)
	m.libraryLoaded = true
	m.errorMessage = ""
	m.clampLibCursor()
	if m.poller.Active() && !m.tickPending {
		return m, m.libraryTickCmd()
	}
	return m, nil
}

func (m *model) libraryTickCmd() tea.Cmd {
	m.tickPending = true
	gen := m.gen
	return tea.Tick(m.poller.Interval(), func(time.Time) tea.Msg {
		return libraryTickMsg{gen: gen}
	})
}

func (m *model) clampLibCursor() {
	visible := len(m.poller.VisibleItems())
	if m.libCursor >= visible {
		m.libCursor = visible - 1
	}
	if m.libCursor < 0 {
		m.libCursor = 0
	}
}

func (m *model) selectedItem() (library.Item, bool) {
	visible := m.poller.VisibleItems()
	if m.libCursor < 0 || m.libCursor >= len(visible) {
		return library.Item{}, false
	}
	return visible[m.libCursor], true
}

// --- processing ---------------------------------------------------------

func (m *model) watchDocument(doc api.Document) tea.Cmd {
	m.setStage(stageProcessing)
	m.monitor = monitor.New(m.config.Gateway, doc, m.config.MonitorInterval, m.config.Log)
	return tea.Batch(
		m.spinner.Tick,
		m.jobs.Start(jobKindMonitor, monitorTickJob(m.monitor, m.config.RequestTimeout, m.gen)),
	)
}

func (m *model) handleMonitorTick(msg monitorTickMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || m.monitor == nil {
		return m, nil
	}
	return m, m.jobs.Start(jobKindMonitor, monitorTickJob(m.monitor, m.config.RequestTimeout, m.gen))
}

func (m *model) handleMonitorResult(msg monitorResultMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || m.monitor == nil {
		return m, nil
	}
	m.monitor.Apply(msg.update)
	switch m.monitor.Phase() {
	case monitor.PhaseReady:
		name := m.monitor.Document().DisplayName()
		count := m.monitor.CardCount()
		m.monitor = nil
		cmd := m.enterLibrary(true)
		m.infoMessage = fmt.Sprintf("%s is ready: %d flashcards.", name, count)
		return m, cmd
	case monitor.PhaseErrored:
		// Stay on the processing screen; the error is rendered once and Esc
		// leads back to the library.
		m.errorMessage = "Processing failed. The document could not be converted."
		return m, nil
	case monitor.PhaseCancelled:
		m.monitor = nil
		cmd := m.enterLibrary(false)
		m.infoMessage = "Processing cancelled."
		return m, cmd
	}
	gen := m.gen
	return m, tea.Tick(m.monitor.Interval(), func(time.Time) tea.Msg {
		return monitorTickMsg{gen: gen}
	})
}

func (m *model) handleCreateResult(msg createResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		m.errorMessage = errText(msg.err)
		return m, nil
	}
	m.infoMessage = "Submitted. Generating flashcards…"
	return m, m.watchDocument(msg.doc)
}

func (m *model) handleCancelResult(msg cancelResultMsg) (tea.Model, tea.Cmd) {
	if !msg.sent {
		return m, nil
	}
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		m.errorMessage = errText(msg.err)
		return m, nil
	}
	m.infoMessage = "Cancel requested."
	return m, nil
}

// --- study --------------------------------------------------------------

func (m *model) openStudy(item library.Item) tea.Cmd {
	m.setStage(stageStudy)
	m.studyLoading = true
	m.sess = nil
	m.syncFailures = 0
	m.transitioning = false
	return tea.Batch(
		m.spinner.Tick,
		m.jobs.Start(jobKindStudyLoad, studyLoadJob(m.config.Gateway, m.config.RequestTimeout, m.gen, item.ID)),
	)
}

func (m *model) handleStudyLoaded(msg studyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.studyLoading = false
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		cmd := m.enterLibrary(false)
		m.errorMessage = errText(msg.err)
		return m, cmd
	}
	m.studyDoc = msg.doc
	m.sess = session.New(msg.cards, m.config.SessionMode, msg.doc.StudiedFlashcardIDs, m.config.FlipCue)
	m.config.Log.Info("study session started",
		"session_id", m.sess.ID(),
		"document_id", msg.doc.ID,
		"cards", len(msg.cards),
	)
	m.infoMessage = "Space flips the card."
	return m, nil
}

func (m *model) handleStudiedSync(msg studiedSyncMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || msg.err == nil {
		return m, nil
	}
	if m.sessionExpired(msg.err) {
		return m, nil
	}
	// The local studied set already advanced and stays that way; the server
	// will pick the mark up next time the card is studied.
	m.syncFailures++
	m.config.Log.Warn("studied mark not persisted", "flashcard_id", msg.cardID, "error", msg.err)
	return m, nil
}

// moveCard applies Advance or a self-assessment and schedules the short
// visual hold plus the remote studied mark.
func (m *model) moveCard(assess int) tea.Cmd {
	if m.sess == nil {
		return nil
	}
	var markID int
	var ok bool
	switch assess {
	case 0:
		markID, ok = m.sess.Advance()
	default:
		markID, ok = m.sess.RecordSelfAssessment(assess > 0)
	}
	cmds := []tea.Cmd{m.transitionCmd()}
	if ok {
		cmds = append(cmds, m.jobs.Start(jobKindMarkStudied,
			markStudiedJob(m.config.Gateway, m.config.RequestTimeout, m.gen, markID)))
	}
	return tea.Batch(cmds...)
}

func (m *model) transitionCmd() tea.Cmd {
	m.transitioning = true
	m.transitionSeq++
	gen, seq := m.gen, m.transitionSeq
	return tea.Tick(session.TransitionDelay, func(time.Time) tea.Msg {
		return cardTransitionMsg{gen: gen, seq: seq}
	})
}

// --- chat ---------------------------------------------------------------

func (m *model) openChat(card api.Flashcard) tea.Cmd {
	m.setStage(stageChat)
	m.chatCard = card
	m.chatHistory = nil
	m.historyLoading = true
	m.chatLoading = false
	m.chatDirty = true
	m.chatInput.SetValue("")
	m.chatInput.Focus()
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.jobs.Start(jobKindChat, chatHistoryJob(m.config.Gateway, m.config.RequestTimeout, m.gen, card.ID)),
	)
}

func (m *model) handleChatHistory(msg chatHistoryMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || msg.cardID != m.chatCard.ID {
		return m, nil
	}
	m.historyLoading = false
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		// A missing transcript is not worth blocking the chat over.
		m.config.Log.Warn("conversation history fetch failed", "flashcard_id", msg.cardID, "error", msg.err)
		m.chatDirty = true
		return m, nil
	}
	history := make([]chatExchange, 0, len(msg.items))
	for _, item := range msg.items {
		history = append(history, chatExchange{
			Question: item.UserMessage,
			Answer:   item.AssistantResponse,
			AskedAt:  item.CreatedAt.Time,
		})
	}
	m.chatHistory = history
	m.chatDirty = true
	return m, nil
}

func (m *model) handleChatReply(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || msg.cardID != m.chatCard.ID {
		return m, nil
	}
	m.chatLoading = false
	if msg.index < 0 || msg.index >= len(m.chatHistory) {
		return m, nil
	}
	entry := &m.chatHistory[msg.index]
	entry.Pending = false
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		entry.Error = errText(msg.err)
	} else {
		entry.Answer = msg.reply.Response
	}
	m.chatDirty = true
	return m, nil
}

// --- stats --------------------------------------------------------------

func (m *model) openStats() tea.Cmd {
	m.setStage(stageStats)
	m.statsLoading = true
	m.statsLoaded = false
	return tea.Batch(
		m.spinner.Tick,
		m.jobs.Start(jobKindStats, statsJob(m.config.Gateway, m.config.RequestTimeout, m.gen)),
	)
}

func (m *model) handleStatsResult(msg statsResultMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.statsLoading = false
	if msg.err != nil {
		if m.sessionExpired(msg.err) {
			return m, nil
		}
		m.errorMessage = errText(msg.err)
		return m, nil
	}
	m.stats = msg.stats
	m.statsLoaded = true
	return m, nil
}

// --- key routing --------------------------------------------------------

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageLogin:
		return m.handleLoginKey(key)
	case stageRegister:
		return m.handleRegisterKey(key)
	case stageLibrary:
		return m.handleLibraryKey(key)
	case stageCreate:
		return m.handleCreateKey(key)
	case stageProcessing:
		return m.handleProcessingKey(key)
	case stageStudy:
		return m.handleStudyKey(key)
	case stageChat:
		return m.handleChatKey(key)
	case stageStats:
		return m.handleStatsKey(key)
	default:
		return m, nil
	}
}

func (m *model) focusAuthField() {
	m.usernameInput.Blur()
	m.emailInput.Blur()
	m.passwordInput.Blur()
	fields := m.authFields()
	if m.authFocus >= 0 && m.authFocus < len(fields) {
		fields[m.authFocus].Focus()
	}
}

func (m *model) authFields() []*textinput.Model {
	if m.stage == stageRegister {
		return []*textinput.Model{&m.usernameInput, &m.emailInput, &m.passwordInput}
	}
	return []*textinput.Model{&m.usernameInput, &m.passwordInput}
}

func (m *model) handleLoginKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyDown, tea.KeyUp:
		delta := 1
		if key.Type == tea.KeyShiftTab || key.Type == tea.KeyUp {
			delta = -1
		}
		m.authFocus = (m.authFocus + delta + 2) % 2
		m.focusAuthField()
		return m, textinput.Blink
	case tea.KeyEnter:
		username := strings.TrimSpace(m.usernameInput.Value())
		password := m.passwordInput.Value()
		if username == "" || password == "" {
			m.errorMessage = "Enter a username and password."
			return m, nil
		}
		if m.authBusy {
			return m, nil
		}
		m.authBusy = true
		m.errorMessage = ""
		m.infoMessage = "Signing in…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindLogin,
			loginJob(m.config.Gateway, m.config.RequestTimeout, username, password)))
	case tea.KeyCtrlN:
		m.setStage(stageRegister)
		m.authFocus = 0
		m.focusAuthField()
		m.infoMessage = "Create a new account."
		return m, textinput.Blink
	}
	return m.updateAuthInputs(key)
}

func (m *model) handleRegisterKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.setStage(stageLogin)
		m.authFocus = 0
		m.focusAuthField()
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyDown, tea.KeyUp:
		delta := 1
		if key.Type == tea.KeyShiftTab || key.Type == tea.KeyUp {
			delta = -1
		}
		m.authFocus = (m.authFocus + delta + 3) % 3
		m.focusAuthField()
		return m, textinput.Blink
	case tea.KeyEnter:
		username := strings.TrimSpace(m.usernameInput.Value())
		email := strings.TrimSpace(m.emailInput.Value())
		password := m.passwordInput.Value()
		if username == "" || email == "" || password == "" {
			m.errorMessage = "All fields are required."
			return m, nil
		}
		if m.authBusy {
			return m, nil
		}
		m.authBusy = true
		m.errorMessage = ""
		m.infoMessage = "Creating account…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindRegister,
			registerJob(m.config.Gateway, m.config.RequestTimeout, username, email, password)))
	}
	return m.updateAuthInputs(key)
}

func (m *model) updateAuthInputs(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.usernameInput, cmd = m.usernameInput.Update(key)
	cmds = append(cmds, cmd)
	m.emailInput, cmd = m.emailInput.Update(key)
	cmds = append(cmds, cmd)
	m.passwordInput, cmd = m.passwordInput.Update(key)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) handleLibraryKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "q":
		return m, tea.Quit
	case "up", "k":
		if m.libCursor > 0 {
			m.libCursor--
		}
		return m, nil
	case "down", "j":
		if m.libCursor < len(m.poller.VisibleItems())-1 {
			m.libCursor++
		}
		return m, nil
	case "left", "h":
		m.poller.PrevPage()
		m.clampLibCursor()
		return m, nil
	case "right", "l":
		m.poller.NextPage()
		m.clampLibCursor()
		return m, nil
	case "enter":
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		switch {
		case item.Ready:
			return m, m.openStudy(item)
		case item.Status == api.StatusProcessing:
			return m, m.watchDocument(item.Document)
		default:
			m.infoMessage = item.DisplayName() + " has no flashcards to study."
			return m, nil
		}
	case "n":
		m.resetWizard()
		m.setStage(stageCreate)
		return m, textinput.Blink
	case "x":
		item, ok := m.selectedItem()
		if !ok || item.Status != api.StatusProcessing {
			m.infoMessage = "Only processing sets can be cancelled."
			return m, nil
		}
		if m.canceller.Cancelling(item.ID) {
			return m, nil
		}
		m.infoMessage = "Cancelling " + item.DisplayName() + "…"
		return m, m.jobs.Start(jobKindCancel,
			cancelProcessingJob(m.canceller, m.config.RequestTimeout, item.ID))
	case "r":
		if m.libraryLoading {
			return m, nil
		}
		m.libraryLoading = true
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindLibrary,
			libraryRefreshJob(m.poller, m.config.RequestTimeout, m.gen, false)))
	case "g":
		return m, m.openStats()
	case "ctrl+l":
		m.logout("Signed out.")
		return m, textinput.Blink
	}
	return m, nil
}

func (m *model) resetWizard() {
	m.createTab = tabText
	m.createFocus = 0
	m.deckSize = 10
	m.difficulty = 1
	m.submitting = false
	m.titleInput.SetValue("")
	m.fileInput.SetValue("")
	m.textArea.SetValue("")
	m.titleInput.Focus()
	m.fileInput.Blur()
	m.textArea.Blur()
	m.infoMessage = "Tab moves between fields. Ctrl+S submits."
}

func (m *model) focusWizardField() {
	m.titleInput.Blur()
	m.fileInput.Blur()
	m.textArea.Blur()
	switch m.createFocus {
	case 0:
		m.titleInput.Focus()
	case 1:
		if m.createTab == tabText {
			m.textArea.Focus()
		} else {
			m.fileInput.Focus()
		}
	}
}

func (m *model) handleCreateKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	switch key.Type {
	case tea.KeyEsc:
		return m, m.enterLibrary(false)
	case tea.KeyTab:
		m.createFocus = (m.createFocus + 1) % 4
		m.focusWizardField()
		return m, textinput.Blink
	case tea.KeyShiftTab:
		m.createFocus = (m.createFocus + 3) % 4
		m.focusWizardField()
		return m, textinput.Blink
	case tea.KeyCtrlT:
		if m.createTab == tabText {
			m.createTab = tabFile
		} else {
			m.createTab = tabText
		}
		m.focusWizardField()
		return m, textinput.Blink
	case tea.KeyCtrlS:
		return m.submitWizard()
	}

	switch m.createFocus {
	case 2:
		switch key.String() {
		case "left", "h":
			if m.deckSize > minDeckCards {
				m.deckSize -= deckCardsStep
			}
		case "right", "l":
			if m.deckSize < maxDeckCards {
				m.deckSize += deckCardsStep
			}
		}
		return m, nil
	case 3:
		switch key.String() {
		case "left", "h":
			m.difficulty = (m.difficulty + len(difficultyLevels) - 1) % len(difficultyLevels)
		case "right", "l":
			m.difficulty = (m.difficulty + 1) % len(difficultyLevels)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case m.createFocus == 0:
		m.titleInput, cmd = m.titleInput.Update(key)
	case m.createTab == tabText:
		m.textArea, cmd = m.textArea.Update(key)
	default:
		m.fileInput, cmd = m.fileInput.Update(key)
	}
	return m, cmd
}

func (m *model) submitWizard() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.titleInput.Value())
	difficulty := difficultyLevels[m.difficulty]

	if m.createTab == tabText {
		text := m.textArea.Value()
		if err := source.ValidateText(text); err != nil {
			m.errorMessage = errText(err)
			return m, nil
		}
		if title == "" {
			title = "Pasted notes"
		}
		m.submitting = true
		m.errorMessage = ""
		m.infoMessage = "Submitting…"
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindSubmit,
			submitTextJob(m.config.Gateway, m.config.RequestTimeout, text, title, m.deckSize, difficulty)))
	}

	path := strings.TrimSpace(m.fileInput.Value())
	if path == "" {
		m.errorMessage = "Enter the path of a pdf, txt or md file."
		return m, nil
	}
	material, err := source.Prepare(path)
	if err != nil {
		m.errorMessage = errText(err)
		return m, nil
	}
	if title == "" {
		title = material.Filename
	}
	m.submitting = true
	m.errorMessage = ""
	m.infoMessage = "Uploading " + material.Filename + "…"
	return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindSubmit,
		uploadFileJob(m.config.Gateway, m.config.RequestTimeout, material, title, m.deckSize, difficulty)))
}

func (m *model) handleProcessingKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		// Processing continues server side; the library poller keeps
		// tracking it from the list view.
		m.monitor = nil
		return m, m.enterLibrary(false)
	case "c":
		if m.monitor == nil || m.monitor.Done() {
			return m, nil
		}
		if m.canceller.Cancelling(m.monitor.DocumentID()) {
			return m, nil
		}
		m.infoMessage = "Cancelling…"
		return m, m.jobs.Start(jobKindCancel,
			cancelProcessingJob(m.canceller, m.config.RequestTimeout, m.monitor.DocumentID()))
	}
	return m, nil
}

func (m *model) handleStudyKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		if key.String() == "esc" {
			return m, m.enterLibrary(false)
		}
		return m, nil
	}
	switch key.String() {
	case "esc":
		m.config.Log.Info("study session closed",
			"session_id", m.sess.ID(),
			"studied", m.sess.StudiedCount(),
		)
		m.sess = nil
		return m, m.enterLibrary(false)
	case " ", "enter":
		m.sess.Flip()
		return m, nil
	case "right", "l", "n":
		return m, m.moveCard(0)
	case "left", "h", "p":
		m.sess.Retreat()
		return m, m.transitionCmd()
	case "y":
		if !m.sess.Revealed() && !m.sess.Complete() {
			m.infoMessage = "Flip the card before judging it."
			return m, nil
		}
		return m, m.moveCard(1)
	case "x":
		if !m.sess.Revealed() && !m.sess.Complete() {
			m.infoMessage = "Flip the card before judging it."
			return m, nil
		}
		return m, m.moveCard(-1)
	case "r":
		m.sess.Reset()
		m.transitioning = false
		m.infoMessage = "Session restarted."
		return m, nil
	case "c":
		card, ok := m.sess.Current()
		if !ok {
			return m, nil
		}
		return m, m.openChat(card)
	}
	return m, nil
}

func (m *model) handleChatKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		// Back to the deck; a pending reply is dropped on arrival.
		m.setStage(stageStudy)
		m.chatInput.Blur()
		return m, nil
	case tea.KeyEnter:
		question := strings.TrimSpace(m.chatInput.Value())
		if question == "" || m.chatLoading {
			return m, nil
		}
		m.chatInput.SetValue("")
		m.chatHistory = append(m.chatHistory, chatExchange{
			Question: question,
			Pending:  true,
			AskedAt:  time.Now(),
		})
		m.chatLoading = true
		m.chatDirty = true
		index := len(m.chatHistory) - 1
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindChat,
			chatAskJob(m.config.Gateway, m.config.RequestTimeout, m.gen, m.chatCard.ID, index, question)))
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(key)
		return m, cmd
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(key)
	return m, cmd
}

func (m *model) handleStatsKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "q", "g":
		return m, m.enterLibrary(false)
	case "r":
		if m.statsLoading {
			return m, nil
		}
		m.statsLoading = true
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindStats,
			statsJob(m.config.Gateway, m.config.RequestTimeout, m.gen)))
	}
	return m, nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
