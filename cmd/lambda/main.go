package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/georgivlv/passenger-portal/internal/config"
	"github.com/georgivlv/passenger-portal/internal/handler"
	"github.com/georgivlv/passenger-portal/internal/logging"
)

var (
	h      *handler.Handler
	logger *zap.Logger
)

// init runs once per cold start.
func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger = logging.New(logging.ParseEnv(cfg.Environment))
	h = handler.New(*cfg, handler.WithLogger(logger))
}

func handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return serveEvent(ctx, h, logger, event), nil
}

func main() {
	defer func() { _ = logger.Sync() }()
	awslambda.Start(handle)
}
