package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/jacentio/lepidoptera/gateway"
	"github.com/jacentio/lepidoptera/service"
	"github.com/jacentio/lepidoptera/store"
	"github.com/jacentio/lepidoptera/stream"
)

// Lambda handler kinds.
const (
	HandlerAPI       = "api"
	HandlerReplicate = "replicate"
)

// LambdaOptions holds flags for the lambda command.
type LambdaOptions struct {
	*RootOptions
	Handler string

	// start hands the handler to the Lambda runtime. Overridden in tests.
	start func(handler any)
}

// NewLambdaCommand creates the lambda command.
func NewLambdaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LambdaOptions{RootOptions: rootOpts, start: lambda.Start}

	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function",
		Long: `Run as an AWS Lambda function.

The api handler serves API Gateway proxy requests. The replicate handler
consumes the record table's DynamoDB stream and copies new records into
replica.table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Handler, "handler", HandlerAPI, "handler to run (api|replicate)")

	return cmd
}

func runLambda(ctx context.Context, opts *LambdaOptions) error {
	cfg, logger := opts.Config, opts.Logger

	switch opts.Handler {
	case HandlerAPI:
		// The Lambda runtime has no scrape endpoint; skip registration.
		st, err := openStore(ctx, cfg, logger, nil)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		opts.start(gateway.NewHandler(service.New(st, logger), logger).Handle)
		return nil

	case HandlerReplicate:
		if cfg.Replica.Table == "" {
			return errors.New("replica.table is required for the replicate handler")
		}
		client, err := newDynamoClient(ctx, cfg.AWS, cfg.Replica.Region)
		if err != nil {
			return err
		}
		replicaCfg := store.DefaultConfig()
		replicaCfg.CacheTTL = -1 // write-only
		replica := store.New(store.NewDynamoBackend(client, cfg.Replica.Table), replicaCfg, store.WithLogger(logger))
		defer replica.Close()
		opts.start(stream.NewHandler(replica, logger).HandleReplicate)
		return nil

	default:
		return fmt.Errorf("unknown handler %q: must be %s or %s", opts.Handler, HandlerAPI, HandlerReplicate)
	}
}
