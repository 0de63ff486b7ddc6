package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"vehicle-bot/handler"
	"vehicle-bot/internal/config"
	"vehicle-bot/internal/integrations/lookup"
	"vehicle-bot/internal/integrations/paramstore"
	"vehicle-bot/internal/repository"
	"vehicle-bot/internal/state"
	"vehicle-bot/internal/turnlog"
	"vehicle-bot/internal/usecase"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// ---- Configuration (read only here) ----
	paramPrefix := strings.TrimSuffix(mustEnv("PARAM_PREFIX"), "/")
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fatal("failed to load configuration", err)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fatal("failed to load AWS config", err)
	}

	// ---- Provider settings from Parameter Store ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		fatal("failed to create SSM client", err)
	}
	urlParam := paramPrefix + "/lookup/api_url"
	bodyParam := paramPrefix + "/lookup/api_body"
	cookiesParam := paramPrefix + "/lookup/cookies"
	params, err := ssmClient.GetParameters(ctx, urlParam, bodyParam, cookiesParam)
	if err != nil {
		fatal("failed to read lookup parameters", err)
	}
	cfg.Lookup.URL = params[urlParam]
	cfg.Lookup.Body = params[bodyParam]
	cfg.Lookup.Cookies = params[cookiesParam]
	field, ok, err := ssmClient.GetOptionalParameter(ctx, paramPrefix+"/lookup/identifier_field")
	if err != nil {
		fatal("failed to read identifier field parameter", err)
	}
	if ok {
		cfg.Lookup.IdentifierField = field
	}

	lookupClient, err := lookup.NewClientFromConfig(cfg.Lookup)
	if err != nil {
		fatal("failed to create lookup client", err)
	}

	// ---- State and turn log ----
	dynamoClient := awsdynamodb.NewFromConfig(awsCfg)

	var states usecase.StateStore
	switch cfg.State.Backend {
	case config.BackendDynamoDB:
		states, err = repository.New(dynamoClient, cfg.State.Table, repository.WithStateTTL(cfg.State.IdleTTL))
		if err != nil {
			fatal("failed to create state client", err)
		}
	default:
		states = state.NewMemoryStore(state.WithMaxEntries(cfg.State.MaxEntries), state.WithIdleTTL(cfg.State.IdleTTL))
	}

	var turns usecase.TurnRecorder
	if cfg.TurnLog.Table != "" {
		turns, err = repository.New(dynamoClient, cfg.TurnLog.Table)
	} else {
		// Only /tmp is writable inside Lambda.
		path := cfg.TurnLog.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(os.TempDir(), path)
		}
		turns, err = turnlog.NewFileRecorder(path)
	}
	if err != nil {
		fatal("failed to create turn recorder", err)
	}

	// ---- Handler ----
	router, err := usecase.NewRouter(lookupClient, states, turns)
	if err != nil {
		fatal("failed to create router", err)
	}

	h, err := handler.NewHandler(router)
	if err != nil {
		fatal("failed to create handler", err)
	}

	slog.Info("vehicle bot ready", "state_backend", cfg.State.Backend, "turn_log_table", cfg.TurnLog.Table)
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

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
