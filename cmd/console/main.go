package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/payvo/payvo/internal/config"
	"github.com/payvo/payvo/internal/console"
	"github.com/payvo/payvo/internal/identity"
	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/logging"
	"github.com/payvo/payvo/internal/narrator"
	"github.com/payvo/payvo/internal/session"
	"github.com/payvo/payvo/internal/speech"
	"github.com/payvo/payvo/internal/store"
	"github.com/payvo/payvo/internal/voiceprint"
)

func main() {
	email := flag.String("email", "", "sign in as this account and read commands from stdin instead of opening the UI")
	passphrase := flag.String("passphrase", "", "voice passphrase for -email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.StoreBackend == config.StorePostgres {
		fmt.Fprintln(os.Stderr, "the console runs against the memory or file store only")
		os.Exit(1)
	}

	logFile, err := os.OpenFile(cfg.ConsoleLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := logging.NewText(logFile, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accounts, err := store.Open(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open account store: %v\n", err)
		os.Exit(1)
	}
	dir, err := ledger.Open(ctx, accounts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load directory: %v\n", err)
		os.Exit(1)
	}
	dir.PruneRequests(ctx, cfg.RequestRetention)

	ids := identity.NewService(dir, identity.Options{
		SeedSampleContacts: cfg.SeedSampleContacts,
		Logger:             logger,
	})
	sessions := session.NewManager(dir, session.Options{
		ThresholdPercent:  cfg.GuardThresholdPercent,
		DefaultSendAmount: cfg.DefaultSendAmount,
		Narrator:          narrator.NewLogger(logger),
		Logger:            logger,
	})
	defer sessions.CloseAll(context.Background())

	if *email != "" {
		if err := runScript(ctx, ids, sessions, *email, *passphrase); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(console.New(console.Deps{Identity: ids, Sessions: sessions, Logger: logger}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running console: %v\n", err)
		os.Exit(1)
	}
}

// runScript signs in and treats every stdin line as one utterance.
func runScript(ctx context.Context, ids *identity.Service, sessions *session.Manager, email, passphrase string) error {
	sample := voiceprint.Simulate(passphrase)
	acct, _, err := ids.Authenticate(ctx, email, passphrase, &sample)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s, err := sessions.Open(acct.Email)
	if err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	runner := session.Runner{
		Session:  s,
		Provider: speech.Channel(lines),
		OnResult: func(utterance string, res session.Result) {
			fmt.Printf("> %s\n[%s] %s\n", utterance, res.Status, res.Message)
			if res.Alert != "" {
				fmt.Printf("%s\n", res.Alert)
			}
		},
	}
	return runner.Run(ctx)
}
