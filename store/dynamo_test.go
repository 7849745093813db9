package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/lepidoptera/internal/keys"
)

// fakeDynamo is an in-memory stand-in for the three DynamoDB calls the
// backend makes. It understands exactly the expressions the backend builds.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]map[string]types.AttributeValue // pk -> sk -> item

	transactErr error
	queryErr    error
	pageSize    int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]map[string]types.AttributeValue)}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk, sk := attrS(in.Key, "pk"), attrS(in.Key, "sk")
	if f.items[pk] == nil {
		f.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	item := f.items[pk][sk]
	var seq int64
	if item != nil {
		seq, _ = strconv.ParseInt(item["seq"].(*types.AttributeValueMemberN).Value, 10, 64)
	}
	seq++
	next := &types.AttributeValueMemberN{Value: strconv.FormatInt(seq, 10)}
	f.items[pk][sk] = map[string]types.AttributeValue{"pk": in.Key["pk"], "sk": in.Key["sk"], "seq": next}

	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"seq": next}}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.transactErr != nil {
		return nil, f.transactErr
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		pk, sk := attrS(ti.Put.Item, "pk"), attrS(ti.Put.Item, "sk")
		if _, exists := f.items[pk][sk]; exists {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		pk, sk := attrS(ti.Put.Item, "pk"), attrS(ti.Put.Item, "sk")
		if f.items[pk] == nil {
			f.items[pk] = make(map[string]map[string]types.AttributeValue)
		}
		f.items[pk][sk] = ti.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	pk := attrS(in.ExpressionAttributeValues, ":pk")
	prefix := attrS(in.ExpressionAttributeValues, ":prefix")
	id := attrS(in.ExpressionAttributeValues, ":id")

	var sks []string
	for sk := range f.items[pk] {
		if strings.HasPrefix(sk, prefix) {
			sks = append(sks, sk)
		}
	}
	sort.Strings(sks)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := attrS(in.ExclusiveStartKey, "sk")
		start = sort.SearchStrings(sks, after) + 1
	}
	end := len(sks)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &dynamodb.QueryOutput{}
	for _, sk := range sks[start:end] {
		item := f.items[pk][sk]
		if id != "" && attrS(item, "id") != id {
			continue
		}
		out.Items = append(out.Items, item)
	}
	if end < len(sks) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sks[end-1]},
		}
	}
	return out, nil
}

func TestDynamoBackend_AppendAndScan(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	b := NewDynamoBackend(fake, "lepidoptera")

	require.NoError(t, b.Append(ctx, Scores, Record{"id": "s1", "userId": "u1", "butterflyId": "b1", "score": 3}))
	require.NoError(t, b.Append(ctx, Scores, Record{"id": "s2", "userId": "u1", "butterflyId": "b2", "score": json.Number("5")}))
	require.NoError(t, b.Append(ctx, Users, Record{"id": "u1", "username": "alex"}))

	scores, err := b.Scan(ctx, Scores)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "s1", scores[0].ID())
	assert.Equal(t, "s2", scores[1].ID())
	assert.Equal(t, float64(5), scores[1]["score"])
	assert.NotContains(t, scores[0], "pk")
	assert.NotContains(t, scores[0], "sk")

	// records land under sequential sort keys
	_, ok := fake.items[Scores][keys.RecordSortKey(1)]
	assert.True(t, ok)
	_, ok = fake.items[Scores][keys.RecordSortKey(2)]
	assert.True(t, ok)
	_, ok = fake.items[Users][keys.RecordSortKey(1)]
	assert.True(t, ok)
}

func TestDynamoBackend_ScanPaginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	fake.pageSize = 2
	b := NewDynamoBackend(fake, "lepidoptera")

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, b.Append(ctx, Users, Record{"id": id, "username": id}))
	}

	users, err := b.Scan(ctx, Users)
	require.NoError(t, err)

	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID())
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestDynamoBackend_Get(t *testing.T) {
	ctx := context.Background()
	b := NewDynamoBackend(newFakeDynamo(), "lepidoptera")

	require.NoError(t, b.Append(ctx, Butterflies, Record{"id": "b1", "commonName": "Boop"}))
	require.NoError(t, b.Append(ctx, Butterflies, Record{"id": "b2", "commonName": "Beep"}))

	got, err := b.Get(ctx, Butterflies, "b2")
	require.NoError(t, err)
	assert.Equal(t, "Beep", got["commonName"])

	_, err = b.Get(ctx, Butterflies, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoBackend_DuplicateIDIsRejected(t *testing.T) {
	ctx := context.Background()
	b := NewDynamoBackend(newFakeDynamo(), "lepidoptera")

	require.NoError(t, b.Append(ctx, Users, Record{"id": "u1", "username": "a"}))
	err := b.Append(ctx, Users, Record{"id": "u1", "username": "b"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	users, err := b.Scan(ctx, Users)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// claims are per collection
	require.NoError(t, b.Append(ctx, Scores, Record{"id": "u1"}))
}

func TestDynamoBackend_ErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("throttled")

	fake := newFakeDynamo()
	fake.transactErr = boom
	b := NewDynamoBackend(fake, "lepidoptera")
	err := b.Append(ctx, Users, Record{"id": "u1"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAlreadyExists)

	fake = newFakeDynamo()
	fake.queryErr = boom
	b = NewDynamoBackend(fake, "lepidoptera")
	_, err = b.Scan(ctx, Users)
	assert.ErrorIs(t, err, boom)
}

func TestDynamoBackend_ThroughStore(t *testing.T) {
	ctx := context.Background()
	s := New(NewDynamoBackend(newFakeDynamo(), "lepidoptera"), Config{CacheTTL: -1})

	created, err := s.Create(ctx, Users, Record{"username": "Buster"})
	require.NoError(t, err)

	got, err := s.FindByID(ctx, Users, created.ID())
	require.NoError(t, err)
	assert.Equal(t, "Buster", got["username"])
}

func TestMapAppendTransactionError(t *testing.T) {
	assert.NoError(t, mapAppendTransactionError(nil, 1))

	claimTaken := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
		},
	}
	assert.ErrorIs(t, mapAppendTransactionError(claimTaken, 1), ErrAlreadyExists)

	seqTaken := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}
	err := mapAppendTransactionError(seqTaken, 7)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Contains(t, err.Error(), "sequence 7")
}

func TestNormalizeNumbers(t *testing.T) {
	out := normalizeNumbers(Record{
		"i": json.Number("4"),
		"f": json.Number("2.5"),
		"s": "text",
		"n": 3,
	})
	assert.Equal(t, int64(4), out["i"])
	assert.Equal(t, 2.5, out["f"])
	assert.Equal(t, "text", out["s"])
	assert.Equal(t, 3, out["n"])
}

func TestRecordFromItem(t *testing.T) {
	fake := newFakeDynamo()
	b := NewDynamoBackend(fake, "t")
	require.NoError(t, b.Append(context.Background(), Users, Record{"id": "u1", "username": "Buster"}))

	var records, skipped int
	for _, byKey := range fake.items {
		for _, item := range byKey {
			coll, rec, ok, err := RecordFromItem(item)
			require.NoError(t, err)
			if !ok {
				skipped++
				continue
			}
			records++
			assert.Equal(t, Users, coll)
			assert.Equal(t, Record{"id": "u1", "username": "Buster"}, rec)
		}
	}
	assert.Equal(t, 1, records)
	assert.Equal(t, 2, skipped, "counter and claim items are not records")

	_, _, ok, err := RecordFromItem(map[string]types.AttributeValue{})
	assert.NoError(t, err)
	assert.False(t, ok)
}
