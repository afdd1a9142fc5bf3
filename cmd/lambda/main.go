package main

import (
	"context"
	_ "time/tzdata" // zone database for app.timezone on minimal runtimes

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sifan077/ResourceHub/config"
	"github.com/sifan077/ResourceHub/internal/app/bootstrap"
	lambdahttp "github.com/sifan077/ResourceHub/internal/http/lambda"
	"github.com/sifan077/ResourceHub/internal/infra/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	// CloudWatch captures stdout; JSON keeps entries queryable.
	log := logger.MustInit(logger.Config{
		Level:    cfg.App.LogLevel,
		Encoding: "json",
	})
	defer func() { _ = logger.Sync() }()

	rt, err := bootstrap.Build(context.Background(), cfg, log, lambdahttp.ContextMiddleware())
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}
	defer rt.Close()

	lambda.Start(lambdahttp.NewAdapter(rt.Server.App()).Handle)
}
