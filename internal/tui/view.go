package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/library"
	"github.com/psoares/flashdeck/internal/monitor"
)

func (m *model) View() string {
	switch m.stage {
	case stageLogin:
		return m.viewLogin()
	case stageRegister:
		return m.viewRegister()
	case stageLibrary:
		return m.viewLibrary()
	case stageCreate:
		return m.viewCreate()
	case stageProcessing:
		return m.viewProcessing()
	case stageStudy:
		return m.viewStudy()
	case stageChat:
		return m.viewChat()
	case stageStats:
		return m.viewStats()
	default:
		return ""
	}
}

func (m *model) heroView() string {
	logo := logoStyle.Render("⚡ flashdeck")
	return lipgloss.JoinVertical(lipgloss.Left, logo, taglineStyle.Render(heroTagline))
}

func (m *model) footer(hints string) string {
	var parts []string
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	if hints != "" {
		parts = append(parts, hintStyle.Render(hints))
	}
	return strings.Join(parts, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) viewLogin() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Sign In"))
	b.WriteRune('\n')
	b.WriteString(m.usernameInput.View())
	b.WriteRune('\n')
	b.WriteString(m.passwordInput.View())
	b.WriteRune('\n')
	if m.authBusy {
		b.WriteString(fmt.Sprintf("%s Signing in…", m.spinner.View()))
		b.WriteRune('\n')
	}
	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("enter sign in · tab next field · ctrl+n create account · esc quit"),
	})
}

func (m *model) viewRegister() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Create Account"))
	b.WriteRune('\n')
	b.WriteString(m.usernameInput.View())
	b.WriteRune('\n')
	b.WriteString(m.emailInput.View())
	b.WriteRune('\n')
	b.WriteString(m.passwordInput.View())
	b.WriteRune('\n')
	if m.authBusy {
		b.WriteString(fmt.Sprintf("%s Creating account…", m.spinner.View()))
		b.WriteRune('\n')
	}
	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("enter submit · tab next field · esc back to sign in"),
	})
}

func (m *model) viewLibrary() string {
	var b strings.Builder
	header := "Your Library"
	if m.poller.PageCount() > 1 {
		header = fmt.Sprintf("Your Library · page %d/%d", m.poller.Page()+1, m.poller.PageCount())
	}
	b.WriteString(sectionHeaderStyle.Render(header))
	b.WriteRune('\n')

	visible := m.poller.VisibleItems()
	switch {
	case m.libraryLoading && !m.libraryLoaded:
		b.WriteString(fmt.Sprintf("%s Loading your study sets…", m.spinner.View()))
		b.WriteRune('\n')
	case len(visible) == 0:
		b.WriteString(helperStyle.Render("No study sets yet. Press n to create one from a document."))
		b.WriteRune('\n')
	default:
		for i, item := range visible {
			cursor := "  "
			if i == m.libCursor {
				cursor = "> "
			}
			row := cursor + m.libraryRow(item)
			if i == m.libCursor {
				row = selectedRowStyle.Render(row)
			}
			b.WriteString(row)
			b.WriteRune('\n')
		}
	}
	if m.poller.Active() {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s watching processing sets…", m.spinner.View())))
		b.WriteRune('\n')
	}

	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("enter open · n new set · x cancel processing · r refresh · g progress · ←/→ page · ctrl+l sign out · q quit"),
	})
}

func (m *model) libraryRow(item library.Item) string {
	name := item.DisplayName()
	switch item.Status {
	case api.StatusProcessing:
		step := item.CurrentStep
		if step == "" {
			step = "processing"
		}
		return fmt.Sprintf("%s %s  %s %d%%",
			processingGlyphStyle.Render("◌"), name, helperStyle.Render(step), item.ProcessingProgress)
	case api.StatusFailed:
		return fmt.Sprintf("%s %s  %s", failedGlyphStyle.Render("✗"), name, failedGlyphStyle.Render("failed"))
	case api.StatusCancelled:
		return fmt.Sprintf("%s %s  %s", helperStyle.Render("⊘"), name, helperStyle.Render("cancelled"))
	default:
		meta := fmt.Sprintf("%d cards · %d studied · %s",
			item.CardCount, item.StudiedFlashcards, item.CreatedAt.Format("Jan 2"))
		glyph := readyGlyphStyle.Render("●")
		if !item.Ready {
			glyph = helperStyle.Render("○")
		}
		return fmt.Sprintf("%s %s  %s", glyph, name, helperStyle.Render(meta))
	}
}

func (m *model) viewCreate() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("New Study Set"))
	b.WriteRune('\n')

	textTab := tabStyle.Render(" Paste text ")
	fileTab := tabStyle.Render(" Upload file ")
	if m.createTab == tabText {
		textTab = activeTabStyle.Render(" Paste text ")
	} else {
		fileTab = activeTabStyle.Render(" Upload file ")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, textTab, " ", fileTab))
	b.WriteString(helperStyle.Render("  (ctrl+t switches)"))
	b.WriteRune('\n')
	b.WriteRune('\n')

	b.WriteString(fieldLabel("Title", m.createFocus == 0))
	b.WriteRune('\n')
	b.WriteString(m.titleInput.View())
	b.WriteRune('\n')
	b.WriteRune('\n')

	if m.createTab == tabText {
		b.WriteString(fieldLabel("Material", m.createFocus == 1))
		b.WriteRune('\n')
		b.WriteString(m.textArea.View())
	} else {
		b.WriteString(fieldLabel("File (pdf, txt, md)", m.createFocus == 1))
		b.WriteRune('\n')
		b.WriteString(m.fileInput.View())
	}
	b.WriteRune('\n')
	b.WriteRune('\n')

	b.WriteString(fieldLabel(fmt.Sprintf("Flashcards: %d", m.deckSize), m.createFocus == 2))
	b.WriteString(helperStyle.Render("  ←/→ adjusts"))
	b.WriteRune('\n')
	b.WriteString(fieldLabel("Difficulty: "+difficultyLevels[m.difficulty], m.createFocus == 3))
	b.WriteString(helperStyle.Render("  ←/→ cycles"))
	b.WriteRune('\n')

	if m.submitting {
		b.WriteRune('\n')
		b.WriteString(fmt.Sprintf("%s Submitting…", m.spinner.View()))
		b.WriteRune('\n')
	}

	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("ctrl+s submit · tab next field · esc back"),
	})
}

func fieldLabel(text string, focused bool) string {
	if focused {
		return focusedLabelStyle.Render("▸ " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m *model) viewProcessing() string {
	if m.monitor == nil {
		return m.viewLibrary()
	}
	doc := m.monitor.Document()

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Generating " + doc.DisplayName()))
	b.WriteRune('\n')
	b.WriteRune('\n')

	switch m.monitor.Phase() {
	case monitor.PhaseErrored:
		b.WriteString(errorStyle.Render("✗ Processing failed."))
		b.WriteRune('\n')
	default:
		fraction := float64(doc.ProcessingProgress) / 100
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		b.WriteString(m.progressBar.ViewAs(fraction))
		b.WriteRune('\n')
		step := doc.CurrentStep
		if m.monitor.Phase() == monitor.PhaseAwaitingFlashcards {
			step = "finalizing flashcards"
		}
		if step == "" {
			step = "working"
		}
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), helperStyle.Render(step+"…")))
		b.WriteRune('\n')
	}

	hints := "esc back to library"
	if !m.monitor.Done() {
		hints = "c cancel · esc back to library"
	}
	return joinNonEmpty([]string{m.heroView(), b.String(), m.footer(hints)})
}

func (m *model) viewStudy() string {
	var b strings.Builder
	switch {
	case m.studyLoading:
		b.WriteString(fmt.Sprintf("%s Opening %s…", m.spinner.View(), m.studyDoc.DisplayName()))
		return joinNonEmpty([]string{m.heroView(), b.String(), m.footer("")})
	case m.sess == nil:
		return m.viewLibrary()
	case m.sess.Complete():
		return m.viewSummary()
	}

	b.WriteString(sectionHeaderStyle.Render(m.studyDoc.DisplayName()))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render(fmt.Sprintf("card %d/%d · %d studied",
		m.sess.Position()+1, m.sess.Len(), m.sess.StudiedCount())))
	b.WriteRune('\n')
	b.WriteRune('\n')
	b.WriteString(m.cardView())
	b.WriteRune('\n')
	if m.syncFailures > 0 {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%d studied mark(s) not synced yet", m.syncFailures)))
		b.WriteRune('\n')
	}

	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("space flip · →/l next · ←/h back · y knew it · x missed it · c chat · r restart · esc library"),
	})
}

func (m *model) cardView() string {
	width := m.cardWidth()
	if m.transitioning {
		return blankCardView(width)
	}
	card, ok := m.sess.Current()
	if !ok {
		return cardStyle.Width(width).Render(helperStyle.Render("No card."))
	}
	face, label := card.Front, "FRONT"
	style := cardStyle
	if m.sess.Revealed() {
		face, label = card.Back, "BACK"
		style = revealedCardStyle
	}
	body := cardLabelStyle.Render(label) + "\n\n" + wordwrap.String(face, width-4)
	if m.sess.Studied(card.ID) {
		body += "\n\n" + studiedMarkStyle.Render("✓ studied")
	}
	return style.Width(width).Render(body)
}

// blankCardView is the brief between-cards hold: a blank face, so the flip
// reads as a full turn rather than an instant swap.
func blankCardView(width int) string {
	return cardStyle.Width(width).Render(cardLabelStyle.Render("···"))
}

func (m *model) cardWidth() int {
	width := m.width - 8
	if width < minCardWidth {
		width = minCardWidth
	}
	if width > maxCardWidth {
		width = maxCardWidth
	}
	return width
}

func (m *model) viewSummary() string {
	correct, incorrect := m.sess.Tally()
	assessed := correct + incorrect

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Session Complete · " + m.studyDoc.DisplayName()))
	b.WriteRune('\n')
	b.WriteRune('\n')
	b.WriteString(fmt.Sprintf("  Cards seen     %d\n", m.sess.Len()))
	b.WriteString(fmt.Sprintf("  Total studied  %d\n", m.sess.StudiedCount()))
	if assessed > 0 {
		b.WriteString(fmt.Sprintf("  Knew it        %d\n", correct))
		b.WriteString(fmt.Sprintf("  Missed         %d\n", incorrect))
		b.WriteString(fmt.Sprintf("  Accuracy       %.0f%%\n", m.sess.Accuracy()*100))
	}

	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("r study again · ←/h back into deck · esc library"),
	})
}

func (m *model) viewChat() string {
	m.refreshChatViewport()

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Card Chat"))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render(truncate(m.chatCard.Front, 70)))
	b.WriteRune('\n')
	b.WriteRune('\n')
	b.WriteString(m.chatViewport.View())
	b.WriteRune('\n')
	b.WriteString(m.chatInput.View())
	b.WriteRune('\n')

	return joinNonEmpty([]string{
		b.String(),
		m.footer("enter ask · pgup/pgdn scroll · esc back to card"),
	})
}

func (m *model) refreshChatViewport() {
	if !m.chatDirty {
		return
	}
	m.chatDirty = false
	wrap := m.chatViewport.Width - 6
	if wrap < 30 {
		wrap = 30
	}

	var b strings.Builder
	if m.historyLoading {
		b.WriteString(fmt.Sprintf("%s Loading past conversation…\n", m.spinner.View()))
	}
	if len(m.chatHistory) == 0 && !m.historyLoading {
		b.WriteString(helperStyle.Render("Ask anything about this card; answers use the source document."))
		b.WriteRune('\n')
	}
	for _, exchange := range m.chatHistory {
		b.WriteString(chatQuestionStyle.Render("You: " + wordwrap.String(exchange.Question, wrap)))
		b.WriteRune('\n')
		switch {
		case exchange.Pending:
			b.WriteString(helperStyle.Render(fmt.Sprintf("  %s thinking…", m.spinner.View())))
		case exchange.Error != "":
			b.WriteString(errorStyle.Render("  " + exchange.Error))
		default:
			b.WriteString(wordwrap.String(exchange.Answer, wrap))
		}
		b.WriteRune('\n')
		b.WriteRune('\n')
	}
	m.chatViewport.SetContent(b.String())
	m.chatViewport.GotoBottom()
}

func (m *model) viewStats() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Your Progress"))
	b.WriteRune('\n')
	b.WriteRune('\n')

	switch {
	case m.statsLoading:
		b.WriteString(fmt.Sprintf("%s Fetching progress…", m.spinner.View()))
		b.WriteRune('\n')
	case m.statsLoaded:
		b.WriteString(fmt.Sprintf("  Studied this week  %d cards\n", m.stats.CardsStudiedWeek))
		b.WriteString(fmt.Sprintf("  Streak             %d day(s)\n", m.stats.StreakDays))
		b.WriteString(fmt.Sprintf("  Overall accuracy   %.0f%%\n", m.stats.GeneralAccuracy*100))
		b.WriteRune('\n')
		b.WriteString(weeklyHistogram(m.stats.WeeklyActivity))
		b.WriteRune('\n')
	}

	return joinNonEmpty([]string{
		m.heroView(),
		b.String(),
		m.footer("r refresh · esc back to library"),
	})
}

// weeklyHistogram renders one bar per day, Sunday first.
func weeklyHistogram(activity []int) string {
	labels := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	const barMax = 30

	peak := 1
	for _, count := range activity {
		if count > peak {
			peak = count
		}
	}
	var b strings.Builder
	for i, label := range labels {
		count := 0
		if i < len(activity) {
			count = activity[i]
		}
		width := count * barMax / peak
		b.WriteString(fmt.Sprintf("  %s %s %d\n",
			helperStyle.Render(label),
			barStyle.Render(strings.Repeat("█", width)),
			count))
	}
	today := labels[int(time.Now().Weekday())]
	b.WriteString(helperStyle.Render("  today: " + today))
	return b.String()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

var (
	logoStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	selectedRowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	readyGlyphStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	processingGlyphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166"))
	failedGlyphStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)

	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	focusedLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))

	cardStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	revealedCardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#a3be8c")).Padding(1, 2)
	cardLabelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	studiedMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c")).Italic(true)

	chatQuestionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	barStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#8ecae6"))
)
