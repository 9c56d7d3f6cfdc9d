package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	nchess "github.com/corentings/chess/v2"

	"github.com/kapu/endgame-coach-go/internal/adapter/consolepresenter"
	"github.com/kapu/endgame-coach-go/internal/coachbuilder"
	appcfg "github.com/kapu/endgame-coach-go/internal/config"
	"github.com/kapu/endgame-coach-go/internal/msgcat"
	"github.com/kapu/endgame-coach-go/internal/obslog"
	"github.com/kapu/endgame-coach-go/internal/trainer"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages init error: %v", err)
	}
	presenter := consolepresenter.New(os.Stdout, messages)

	deps, err := coachbuilder.New(cfg, presenter, logger)
	if err != nil {
		log.Fatalf("trainer init error: %v", err)
	}
	defer func() { _ = deps.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Endgame coach. Commands: list, start <drill-id>, <move>, hint, back, continue, resign, quit.")
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}
		if quit := dispatch(ctx, deps, messages, strings.TrimSpace(line)); quit {
			return
		}
	}
}

func dispatch(ctx context.Context, deps *coachbuilder.Deps, messages *msgcat.Catalog, line string) (quit bool) {
	if line == "" {
		return false
	}
	cmd, rest, _ := strings.Cut(line, " ")
	o := deps.Orchestrator

	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "list":
		for _, d := range deps.Catalog.List() {
			fmt.Printf("  %-16s %s (goal: %s)\n", d.ID, d.Title, d.Goal)
		}
	case "start":
		drill, err := deps.Catalog.Get(rest)
		if err != nil {
			fmt.Println("unknown drill; try 'list'")
			return false
		}
		payload, err := o.StartSession(ctx, drill)
		if err != nil {
			fmt.Printf("could not start drill: %v\n", err)
			return false
		}
		side := "White"
		if pos := o.Position(); pos.Turn == nchess.Black {
			side = "Black"
		}
		fmt.Println(messages.MustRender("session.started", map[string]string{
			"Title": drill.Title,
			"Goal":  drill.Goal,
			"Side":  side,
			"FEN":   payload.FEN,
		}))
	case "hint":
		if mv, ok := o.Hint(ctx); ok {
			fmt.Println(messages.MustRender("move.hint", map[string]string{"Move": mv.SAN}))
		} else {
			fmt.Println(messages.MustRender("move.no_hint", nil))
		}
	case "back":
		if err := o.TakeBack(ctx); err != nil {
			fmt.Printf("take-back: %v\n", err)
		} else {
			fmt.Println(o.Position().FEN)
		}
	case "continue":
		if err := o.AcknowledgeContinue(); err != nil {
			fmt.Printf("continue: %v\n", err)
		}
	case "resign":
		if err := o.Resign(ctx); err != nil {
			fmt.Printf("resign: %v\n", err)
		}
	default:
		submitMove(ctx, o, messages, line)
	}
	return false
}

func submitMove(ctx context.Context, o *trainer.Orchestrator, messages *msgcat.Catalog, text string) {
	err := o.SubmitMove(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, trainer.ErrNoSession):
		fmt.Println(messages.MustRender("error.no_session", nil))
	case errors.Is(err, trainer.ErrFeedbackPending):
		fmt.Println(messages.MustRender("error.feedback_pending", nil))
	case errors.Is(err, trainer.ErrMoveInFlight):
		fmt.Println(messages.MustRender("error.busy", nil))
	case errors.Is(err, trainer.ErrSessionEnded):
		fmt.Println(messages.MustRender("error.no_session", nil))
	default:
		fmt.Println(messages.MustRender("error.invalid_move", nil))
	}
}
