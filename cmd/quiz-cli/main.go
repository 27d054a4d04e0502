package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gokatarajesh/trivia-quiz/internal/cli"
	"github.com/gokatarajesh/trivia-quiz/internal/config"
	"github.com/gokatarajesh/trivia-quiz/internal/logging"
	"github.com/gokatarajesh/trivia-quiz/internal/opentdb"
	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	"github.com/gokatarajesh/trivia-quiz/internal/throttle"
)

func main() {
	// a missing .env is normal for the terminal client
	_ = godotenv.Load("configs/.env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadCLI(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.Name, cfg.Env, cfg.LogLevel)
	client := opentdb.NewClient(cfg.OpenTDB.BaseURL, &http.Client{Timeout: cfg.OpenTDB.HTTPTimeout})
	ctrl := session.NewController(ctx, session.Deps{
		Tokens:    client,
		Questions: client,
		Engine: quiz.Options{
			Throttle: throttle.New(cfg.Quiz.MinInterval, nil, nil),
			MaxWrong: cfg.Quiz.MaxWrongAnswers,
		},
	}, logger)
	defer ctrl.Close()

	if err := cli.Run(ctx, ctrl, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
