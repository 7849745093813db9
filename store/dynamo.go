package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/lepidoptera/internal/keys"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// DynamoAPI is the subset of *dynamodb.Client used by DynamoBackend.
type DynamoAPI interface {
	dynamodb.QueryAPIClient
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoBackend keeps every collection in one DynamoDB table.
//
// Layout:
//   - records: pk = collection, sk = "rec#" + zero-padded sequence
//   - sequence counter: pk = collection, sk = "counter", attribute "seq"
//   - id claims: pk = hash(collection, id), sk = "CLAIM"
//
// A record and its id claim are written in one transaction, so an id can
// never appear twice in a collection.
type DynamoBackend struct {
	client DynamoAPI
	table  string
}

// NewDynamoBackend creates a backend over table.
func NewDynamoBackend(client DynamoAPI, table string) *DynamoBackend {
	return &DynamoBackend{
		client: client,
		table:  table,
	}
}

// Append writes record after the latest record of collection.
func (b *DynamoBackend) Append(ctx context.Context, collection string, record Record) error {
	id := record.ID()

	seq, err := b.nextSeq(ctx, collection)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(normalizeNumbers(record))
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	item["pk"] = &types.AttributeValueMemberS{Value: collection}
	item["sk"] = &types.AttributeValueMemberS{Value: keys.RecordSortKey(seq)}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName: aws.String(b.table),
				Item: map[string]types.AttributeValue{
					"pk":         &types.AttributeValueMemberS{Value: keys.ClaimPK(collection, id)},
					"sk":         &types.AttributeValueMemberS{Value: keys.ClaimSortKey},
					"collection": &types.AttributeValueMemberS{Value: collection},
					"id":         &types.AttributeValueMemberS{Value: id},
				},
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(b.table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			},
		},
	}

	_, err = b.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapAppendTransactionError(err, seq)
}

// Scan returns the records of collection in sequence order.
func (b *DynamoBackend) Scan(ctx context.Context, collection string) ([]Record, error) {
	return b.query(ctx, collection, "")
}

// Get returns the earliest record of collection with the given id.
func (b *DynamoBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	records, err := b.query(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Close is a no-op; the client owns no resources that need releasing.
func (b *DynamoBackend) Close() error {
	return nil
}

// nextSeq atomically increments the collection counter and returns the new value.
func (b *DynamoBackend) nextSeq(ctx context.Context, collection string) (int64, error) {
	out, err := b.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(b.table),
		Key: PK{
			"pk": &types.AttributeValueMemberS{Value: collection},
			"sk": &types.AttributeValueMemberS{Value: keys.CounterSortKey},
		},
		UpdateExpression:         aws.String("ADD #seq :one"),
		ExpressionAttributeNames: map[string]string{"#seq": "seq"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}

	v, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("increment sequence: missing seq attribute")
	}
	seq, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return seq, nil
}

// query pages through the records of collection, optionally filtered by id.
func (b *DynamoBackend) query(ctx context.Context, collection, id string) ([]Record, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(b.table),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: collection},
			":prefix": &types.AttributeValueMemberS{Value: keys.RecordPrefix},
		},
		ConsistentRead:   aws.Bool(true),
		ScanIndexForward: aws.Bool(true),
	}
	if id != "" {
		input.FilterExpression = aws.String("#id = :id")
		input.ExpressionAttributeNames = map[string]string{"#id": "id"}
		input.ExpressionAttributeValues[":id"] = &types.AttributeValueMemberS{Value: id}
	}

	records := []Record{}
	paginator := dynamodb.NewQueryPaginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		for _, raw := range page.Items {
			record, err := unmarshalRecord(raw)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}
	return records, nil
}

// mapAppendTransactionError maps transaction cancellations for Append.
// Index 0 is the id claim, index 1 the record put.
func mapAppendTransactionError(err error, seq int64) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				if i == 0 {
					return ErrAlreadyExists
				}
				return fmt.Errorf("sequence %d already used: %w", seq, err)
			}
		}
	}

	return fmt.Errorf("write record: %w", err)
}

// unmarshalRecord converts a DynamoDB item to a Record without key attributes.
func unmarshalRecord(raw map[string]types.AttributeValue) (Record, error) {
	record := Record{}
	if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	delete(record, "pk")
	delete(record, "sk")
	return record, nil
}

// RecordFromItem returns the collection and record held by a raw table item,
// such as a stream image. ok is false for counter and claim items.
func RecordFromItem(item map[string]types.AttributeValue) (collection string, record Record, ok bool, err error) {
	pk, _ := item["pk"].(*types.AttributeValueMemberS)
	sk, _ := item["sk"].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return "", nil, false, nil
	}
	if _, err := keys.ParseRecordSortKey(sk.Value); err != nil {
		return "", nil, false, nil
	}
	record, err = unmarshalRecord(item)
	if err != nil {
		return "", nil, false, err
	}
	return pk.Value, record, true, nil
}

// normalizeNumbers replaces json.Number values with int64 or float64 so the
// attribute marshaller stores them as numbers.
func normalizeNumbers(record Record) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		n, ok := v.(json.Number)
		if !ok {
			out[k] = v
			continue
		}
		if i, err := n.Int64(); err == nil {
			out[k] = i
		} else if f, err := n.Float64(); err == nil {
			out[k] = f
		} else {
			out[k] = n.String()
		}
	}
	return out
}

// EnsureTable creates table with the backend's key schema when it does not
// exist yet and waits until it is active.
func EnsureTable(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", table, err)
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", table, err)
	}
	return nil
}
