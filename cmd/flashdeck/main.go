package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/psoares/flashdeck/internal/api"
	"github.com/psoares/flashdeck/internal/auth"
	"github.com/psoares/flashdeck/internal/config"
	"github.com/psoares/flashdeck/internal/logging"
	"github.com/psoares/flashdeck/internal/session"
	"github.com/psoares/flashdeck/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a flashdeck.yaml config file")
	apiURL := flag.String("api-url", "", "override the backend base URL")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("configuration error:", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	log, err := logging.New(cfg.LogPath)
	if err != nil {
		fmt.Println("failed to open log file:", err)
		os.Exit(1)
	}
	defer log.Sync()

	tokens, err := auth.NewStore(cfg.TokenPath)
	if err != nil {
		fmt.Println("failed to open token store:", err)
		os.Exit(1)
	}
	if tokens.Token() != "" && tokens.Expired(time.Now()) {
		log.Info("stored token expired, clearing")
		if err := tokens.Clear(); err != nil {
			fmt.Println("failed to clear expired token:", err)
			os.Exit(1)
		}
	}

	client := api.New(cfg.APIURL, tokens, log, api.WithTimeout(cfg.RequestTimeout))

	mode := session.ModeCircular
	if cfg.SessionMode == "linear" {
		mode = session.ModeLinear
	}

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Gateway:         client,
			Tokens:          tokens,
			Log:             log,
			MonitorInterval: cfg.MonitorInterval,
			LibraryInterval: cfg.LibraryInterval,
			RequestTimeout:  cfg.RequestTimeout,
			PageSize:        cfg.PageSize,
			SessionMode:     mode,
			FlipCue:         terminalBell,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

// terminalBell is the card-flip cue. BEL is non-printing, so it is safe to
// emit while the alternate screen is active.
func terminalBell() error {
	_, err := os.Stdout.Write([]byte{0x07})
	return err
}
