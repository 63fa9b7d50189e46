package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/lachiem1/habitflow/internal/auth"
	"github.com/lachiem1/habitflow/internal/hubapi"
	"github.com/lachiem1/habitflow/internal/mirror"
	"github.com/lachiem1/habitflow/internal/storage"
	"github.com/lachiem1/habitflow/internal/syncer"
	"github.com/lachiem1/habitflow/internal/tui"
)

func main() {
	if len(os.Args) >= 3 && os.Args[1] == "auth" && os.Args[2] == "set" {
		if err := runAuthSet(); err != nil {
			fmt.Fprintf(os.Stderr, "auth set error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Token saved to your system credential store.")
		return
	}

	if len(os.Args) >= 3 && os.Args[1] == "auth" && os.Args[2] == "clear" {
		if err := auth.ClearToken(); err != nil {
			fmt.Fprintf(os.Stderr, "auth clear error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Token removed from your system credential store.")
		return
	}

	if len(os.Args) >= 2 && os.Args[1] == "wipe" {
		if err := runWipe(); err != nil {
			fmt.Fprintf(os.Stderr, "wipe error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Local data removed.")
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "habitflow error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	token, err := auth.LoadToken()
	if err != nil {
		return fmt.Errorf("no hub token available, run `habitflow auth set` first: %w", err)
	}

	ctx := context.Background()
	db, _, err := storage.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	mirrorStore, err := mirror.OpenDefault()
	if err != nil {
		return err
	}

	client := hubapi.New(token)

	// Sync callbacks run on their own goroutines; the channel feeds them
	// into the update loop. Dropping an event when the buffer is full is
	// fine, the next one carries fresher state.
	events := make(chan tea.Msg, 64)
	sendEvent := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	stack, err := syncer.NewStack(
		db,
		client,
		mirrorStore,
		func(evt syncer.Event) { sendEvent(tui.EngineEventMsg(evt)) },
		func(evt syncer.SaveEvent) { sendEvent(tui.SaveEventMsg(evt)) },
	)
	if err != nil {
		return err
	}
	defer func() {
		stack.Service.LeaveView()
		_ = stack.HabitSaves.Close(context.Background())
		_ = stack.LogSaves.Close(context.Background())
	}()

	mode, err := stack.Settings.CompletionMode(ctx)
	if err != nil {
		return err
	}

	program := tea.NewProgram(tui.New(stack, mode, events), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func runAuthSet() error {
	if len(os.Args) != 3 {
		return errors.New("usage: habitflow auth set")
	}

	fmt.Print("Enter hub token: ")
	token, err := readSecret()
	if err != nil {
		return err
	}
	fmt.Println()

	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}

	return auth.SaveToken(token)
}

func runWipe() error {
	cfg, err := storage.Wipe()
	if err != nil {
		return err
	}
	fmt.Printf("Removed database at %s.\n", cfg.Path)

	mirrorStore, err := mirror.OpenDefault()
	if err != nil {
		return err
	}
	return mirrorStore.Wipe()
}

func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		value, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(value), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		if len(line) == 0 {
			return "", err
		}
	}
	return strings.TrimSpace(line), nil
}
