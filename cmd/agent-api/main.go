package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/dx-tooling/ask-a-human/handler/agentapi"
	"github.com/dx-tooling/ask-a-human/internal/integrations/paramstore"
	"github.com/dx-tooling/ask-a-human/internal/repository"
	"github.com/dx-tooling/ask-a-human/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	questionsTable := mustEnv("QUESTIONS_TABLE")
	responsesTable := mustEnv("RESPONSES_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), questionsTable, responsesTable)
	if err != nil {
		slog.Error("failed to create repository client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	agentService, err := usecase.NewAgentService(store, ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create agent service", "err", err)
		os.Exit(1)
	}

	h, err := agentapi.New(agentService)
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
