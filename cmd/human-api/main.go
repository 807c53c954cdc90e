package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dx-tooling/ask-a-human/handler/humanapi"
	"github.com/dx-tooling/ask-a-human/internal/repository"
	"github.com/dx-tooling/ask-a-human/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	questionsTable := mustEnv("QUESTIONS_TABLE")
	responsesTable := mustEnv("RESPONSES_TABLE")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), questionsTable, responsesTable)
	if err != nil {
		slog.Error("failed to create repository client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	humanService, err := usecase.NewHumanService(store)
	if err != nil {
		slog.Error("failed to create human service", "err", err)
		os.Exit(1)
	}

	h, err := humanapi.New(humanService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
