// Package stream provides DynamoDB Streams handlers for the record table.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lepidoptera/store"
)

// Handler copies records written to the primary table into a replica store.
type Handler struct {
	replica *store.Store
	logger  *slog.Logger
}

// NewHandler creates a new stream handler writing into replica.
func NewHandler(replica *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		replica: replica,
		logger:  logger,
	}
}

// HandleReplicate processes DynamoDB stream events and imports every newly
// inserted record into the replica, keeping its id. Stream records arrive in
// order per collection, so the replica preserves insertion order.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleReplicate(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord replicates a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Records are immutable; only inserts carry anything to copy.
	if record.EventName != "INSERT" {
		return nil
	}

	item, err := ConvertImage(record.Change.NewImage)
	if err != nil {
		return fmt.Errorf("convert image: %w", err)
	}
	collection, rec, ok, err := store.RecordFromItem(item)
	if err != nil {
		return err
	}
	if !ok {
		// counters and id claims
		return nil
	}

	err = h.replica.Import(ctx, collection, rec)
	if errors.Is(err, store.ErrAlreadyExists) {
		// a redelivered batch
		h.logger.Debug("record already replicated",
			"collection", collection,
			"id", rec.ID(),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("replicate %s %q: %w", collection, rec.ID(), err)
	}

	h.logger.Info("record replicated",
		"collection", collection,
		"id", rec.ID(),
		"sequence", getStringAttr(record.Change.Keys, "sk"),
	)
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		av, err := convertValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		result[k] = av
	}
	return result, nil
}

func convertValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for i, item := range list {
			av, err := convertValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, av)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m, err := ConvertImage(v.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unsupported data type %v", v.DataType())
	}
}
