package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/lepidoptera/config"
	"github.com/jacentio/lepidoptera/internal/metrics"
	"github.com/jacentio/lepidoptera/store"
)

// openStore opens the configured backend and wraps it in a store. Store
// metrics are registered on reg when it is non-nil.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*store.Store, error) {
	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	m, err := metrics.New(reg)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.CacheTTL = cfg.Storage.CacheTTL
	storeCfg.CacheCleanupInterval = 0 // derived from the TTL
	return store.New(backend, storeCfg,
		store.WithMetrics(m),
		store.WithLogger(logger),
	), nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Backend, error) {
	logger.Info("opening storage", "driver", cfg.Storage.Driver)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return store.NewMemoryBackend(), nil
	case config.DriverFile:
		return store.OpenFile(cfg.Storage.Path)
	case config.DriverSQLite:
		return store.OpenSQLite(cfg.Storage.Path)
	case config.DriverDynamoDB:
		client, err := newDynamoClient(ctx, cfg.AWS, "")
		if err != nil {
			return nil, err
		}
		// DynamoDB Local starts empty; real tables are provisioned out of band.
		if cfg.AWS.Endpoint != "" {
			if err := store.EnsureTable(ctx, client, cfg.Storage.Table); err != nil {
				return nil, err
			}
		}
		return store.NewDynamoBackend(client, cfg.Storage.Table), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newDynamoClient builds a DynamoDB client from the default credential chain.
// region overrides the configured region when non-empty.
func newDynamoClient(ctx context.Context, cfg config.AWSConfig, region string) (*dynamodb.Client, error) {
	if region == "" {
		region = cfg.Region
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
