package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/psoares/flashdeck/internal/library"
	"github.com/psoares/flashdeck/internal/monitor"
	"github.com/psoares/flashdeck/internal/source"
)

func loginJob(gw Gateway, timeout time.Duration, username, password string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		token, err := gw.Login(ctx, username, password)
		return loginResultMsg{token: token, err: err}, err
	}
}

func registerJob(gw Gateway, timeout time.Duration, username, email, password string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		user, err := gw.Register(ctx, username, email, password)
		return registerResultMsg{user: user, err: err}, err
	}
}

func libraryRefreshJob(poller *library.Poller, timeout time.Duration, gen int, cold bool) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		snap, err := poller.Refresh(ctx)
		return libraryResultMsg{gen: gen, cold: cold, snap: snap, err: err}, err
	}
}

func monitorTickJob(mon *monitor.Monitor, timeout time.Duration, gen int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		update := mon.Tick(ctx)
		// Transient fetch errors ride inside the update; the job itself only
		// fails on a programming error, so always report success.
		return monitorResultMsg{gen: gen, update: update}, nil
	}
}

func submitTextJob(gw Gateway, timeout time.Duration, text, title string, cards int, difficulty string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		doc, err := gw.CreateDocumentFromText(ctx, text, title, cards, difficulty)
		return createResultMsg{doc: doc, err: err}, err
	}
}

func uploadFileJob(gw Gateway, timeout time.Duration, material source.Material, title string, cards int, difficulty string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		doc, err := gw.UploadDocument(ctx, material.Filename, material.Bytes, title, cards, difficulty)
		return createResultMsg{doc: doc, err: err}, err
	}
}

func studyLoadJob(gw Gateway, timeout time.Duration, gen, documentID int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		doc, err := gw.GetDocument(ctx, documentID)
		if err != nil {
			return studyLoadedMsg{gen: gen, err: err}, err
		}
		cards, err := gw.ListFlashcards(ctx, documentID)
		if err != nil {
			return studyLoadedMsg{gen: gen, err: err}, err
		}
		if len(cards) == 0 {
			err = fmt.Errorf("%s has no flashcards yet", doc.DisplayName())
			return studyLoadedMsg{gen: gen, err: err}, err
		}
		return studyLoadedMsg{gen: gen, doc: doc, cards: cards}, nil
	}
}

func markStudiedJob(gw Gateway, timeout time.Duration, gen, cardID int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		err := gw.MarkStudied(ctx, cardID)
		return studiedSyncMsg{gen: gen, cardID: cardID, err: err}, err
	}
}

func cancelProcessingJob(canceller *library.Canceller, timeout time.Duration, documentID int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		sent, err := canceller.Cancel(ctx, documentID)
		return cancelResultMsg{documentID: documentID, sent: sent, err: err}, err
	}
}

func chatHistoryJob(gw Gateway, timeout time.Duration, gen, cardID int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		items, err := gw.ListConversations(ctx, cardID)
		return chatHistoryMsg{gen: gen, cardID: cardID, items: items, err: err}, err
	}
}

func chatAskJob(gw Gateway, timeout time.Duration, gen, cardID, index int, message string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		reply, err := gw.Chat(ctx, cardID, message)
		return chatReplyMsg{gen: gen, cardID: cardID, index: index, reply: reply, err: err}, err
	}
}

func statsJob(gw Gateway, timeout time.Duration, gen int) jobRunner {
	// The backend expects minutes west of UTC (240 for UTC-4); Zone reports
	// seconds east of UTC, hence the negation.
	_, offsetSeconds := time.Now().Zone()
	offsetMinutes := -offsetSeconds / 60
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		stats, err := gw.ProgressStats(ctx, offsetMinutes)
		return statsResultMsg{gen: gen, stats: stats, err: err}, err
	}
}
