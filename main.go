package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"

	"catalog-relay/config"
	"catalog-relay/handlers"
	"catalog-relay/repositories"
	"catalog-relay/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	if cfg.LogLevel == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Without explicit keys the mirror bucket is accessed anonymously.
	var creds aws.CredentialsProvider = aws.AnonymousCredentials{}
	if cfg.AWS.AccessKeyID != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, "")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		logger.Error("unable to load AWS config", slog.Any("error", err))
		os.Exit(1)
	}

	httpClient := repositories.NewHTTPClient(cfg.HTTPTimeout)

	opts := []services.RelayOption{
		services.WithCatalogRepository(repositories.NewCatalogRepository(httpClient, cfg.Catalog.URL, cfg.Catalog.RateInterval)),
		services.WithAnalysisRepository(repositories.NewAnalysisRepository(
			httpClient, cfg.Analysis.Endpoint, cfg.Analysis.APIKey, cfg.Analysis.Features, cfg.Analysis.Details,
		)),
		services.WithSelector(services.NewSelector(
			cfg.Catalog.MaxPages,
			cfg.Catalog.MaxThreadsPerPage,
			services.WithMaxAttempts(cfg.Catalog.MaxAttempts),
			services.WithDisallowedExts(cfg.Catalog.DisallowedExts),
		)),
		services.WithImageBaseURL(cfg.Catalog.ImageBaseURL),
		services.WithLogger(logger),
	}

	if cfg.Mirror.Enabled() {
		s3Client := repositories.NewS3Client(awsCfg, cfg.AWS.EndpointURL)
		opts = append(opts,
			services.WithMediaRepository(repositories.NewMediaRepository(httpClient)),
			services.WithStorageRepository(repositories.NewS3Repository(s3Client, cfg.Mirror.PartSize, cfg.Mirror.Concurrency)),
			services.WithMirrorSettings(services.MirrorSettings{
				Bucket:         cfg.Mirror.Bucket,
				BaseURL:        cfg.Mirror.BaseURL,
				KeyPrefix:      cfg.Mirror.KeyPrefix,
				TempDir:        cfg.Mirror.TempDir,
				EventsQueueURL: cfg.Mirror.EventsQueueURL,
			}),
		)
		if cfg.Mirror.EventsQueueURL != "" {
			sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			opts = append(opts, services.WithNotifier(repositories.NewSQSRepository(sqsClient)))
		}
	} else {
		logger.Warn("mirror bucket not configured, /4chanraw is disabled")
	}

	relayService := services.NewRelayService(opts...)
	router := handlers.NewRouter(handlers.NewRelayHandler(relayService, logger), logger)

	server := handlers.NewServer(cfg.Port, router, cfg.ShutdownTimeout, logger)
	if err := server.Run(); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}
