//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// LEPIDOPTERA_E2E_ENDPOINT points the tests at DynamoDB Local instead of AWS;
// LEPIDOPTERA_E2E_PROFILE selects a shared config profile.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/jacentio/lepidoptera/service"
	"github.com/jacentio/lepidoptera/store"
)

// Table names are unique per test run to avoid conflicts.
const tablePrefix = "lepidoptera-e2e-test"

var (
	testID       string
	recordTable  string
	replicaTable string

	ddbClient *dynamodb.Client
	testStore *store.Store
	services  *service.Services
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	recordTable = fmt.Sprintf("%s-%s-records", tablePrefix, testID)
	replicaTable = fmt.Sprintf("%s-%s-replica", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Tables:\n")
	fmt.Printf("  - Records: %s\n", recordTable)
	fmt.Printf("  - Replica: %s\n", replicaTable)

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if profile := os.Getenv("LEPIDOPTERA_E2E_PROFILE"); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint := os.Getenv("LEPIDOPTERA_E2E_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	for _, table := range []string{recordTable, replicaTable} {
		if err := store.EnsureTable(ctx, ddbClient, table); err != nil {
			fmt.Printf("Failed to create table %s: %v\n", table, err)
			os.Exit(1)
		}
	}

	testStore = store.New(store.NewDynamoBackend(ddbClient, recordTable), store.DefaultConfig())
	services = service.New(testStore, nil)

	code := m.Run()

	deleteTables(ctx)
	os.Exit(code)
}

func deleteTables(ctx context.Context) {
	fmt.Println("Deleting test tables...")
	for _, table := range []string{recordTable, replicaTable} {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", table, err)
		}
	}
}

// --- Entity Tests ---

func TestButterfly_CreateAndGet(t *testing.T) {
	ctx := context.Background()

	created, err := services.Butterflies.Create(ctx, map[string]any{
		"commonName": "Red Admiral",
		"species":    "Vanessa atalanta",
		"article":    "https://en.wikipedia.org/wiki/Vanessa_atalanta",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := services.Butterflies.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != created {
		t.Errorf("Get = %+v, want %+v", got, created)
	}
}

func TestUser_GetNotFound(t *testing.T) {
	_, err := services.Users.Get(context.Background(), uuid.NewString())
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScores_SortedListing(t *testing.T) {
	ctx := context.Background()
	userID := uuid.NewString()

	for _, v := range []int{3, 5, 4, 5} {
		if _, err := services.Scores.Create(ctx, userID, map[string]any{"butterflyId": "b", "score": v}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	desc, err := services.Scores.List(ctx, userID, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []int{5, 5, 4, 3}
	for i, s := range desc {
		if s.Score != want[i] {
			t.Errorf("desc[%d] = %d, want %d", i, s.Score, want[i])
		}
	}
	// equal scores keep creation order
	if desc[0].ID == desc[1].ID {
		t.Error("expected distinct ids")
	}

	asc, err := services.Scores.List(ctx, userID, "asc")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if asc[0].Score != 3 || asc[3].Score != 5 || asc[2].ID != desc[0].ID {
		t.Errorf("unexpected ascending order %+v", asc)
	}
}

func TestImport_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	record := store.Record{"id": uuid.NewString(), "username": "dup"}

	if err := testStore.Import(ctx, store.Users, record); err != nil {
		t.Fatalf("first Import failed: %v", err)
	}
	err := testStore.Import(ctx, store.Users, record)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestScan_InsertionOrderAcrossPages(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewDynamoBackend(ddbClient, replicaTable), store.DefaultConfig())

	var ids []string
	for i := 0; i < 25; i++ {
		r, err := st.Create(ctx, store.Butterflies, store.Record{
			"commonName": fmt.Sprintf("butterfly-%02d", i),
			"species":    "Testius",
			"article":    "https://example.com",
		})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
		ids = append(ids, r.ID())
	}

	all, err := st.FindAll(ctx, store.Butterflies, nil)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(all) != len(ids) {
		t.Fatalf("expected %d records, got %d", len(ids), len(all))
	}
	for i, r := range all {
		if r.ID() != ids[i] {
			t.Errorf("record %d = %s, want %s", i, r.ID(), ids[i])
		}
	}
}
