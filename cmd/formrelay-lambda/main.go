package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/efreitasn/formrelay/internal/app"
	"github.com/efreitasn/formrelay/internal/config"
	"github.com/efreitasn/formrelay/internal/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	// Built once per execution environment and reused across invocations.
	relay, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build app", slog.String("error", err.Error()))
		os.Exit(1)
	}

	lambda.Start(handler.NewLambdaAdapter(relay.Handler).Handle)
}
