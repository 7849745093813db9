package schema_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/jacentio/lepidoptera/schema"
)

func TestButterflyShape(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		wantErr bool
	}{
		{
			name: "valid",
			body: map[string]any{"commonName": "Boop", "species": "Boopi beepi", "article": "https://x"},
		},
		{
			name: "empty strings are still strings",
			body: map[string]any{"commonName": "", "species": "", "article": ""},
		},
		{name: "nil body", body: nil, wantErr: true},
		{name: "empty object", body: map[string]any{}, wantErr: true},
		{name: "missing some", body: map[string]any{"commonName": "boop"}, wantErr: true},
		{
			name:    "caller supplied id",
			body:    map[string]any{"id": "x", "commonName": "Boop", "species": "B", "article": "a"},
			wantErr: true,
		},
		{
			name:    "unknown field",
			body:    map[string]any{"commonName": "Boop", "species": "B", "article": "a", "wings": 4},
			wantErr: true,
		},
		{
			name:    "wrong type",
			body:    map[string]any{"commonName": 12, "species": "B", "article": "a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Butterfly.Validate(tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, schema.ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUserShape(t *testing.T) {
	if err := schema.User.Validate(map[string]any{"username": "Buster"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := schema.User.Validate(map[string]any{}); err == nil {
		t.Error("expected error for missing username")
	}
	if err := schema.User.Validate(map[string]any{"username": true}); err == nil {
		t.Error("expected error for non-string username")
	}
}

func TestScoreShape_Range(t *testing.T) {
	tests := []struct {
		score   any
		wantErr bool
	}{
		{score: 0},
		{score: 5},
		{score: 3},
		{score: float64(4)},
		{score: json.Number("2")},
		{score: -1, wantErr: true},
		{score: 6, wantErr: true},
		{score: float64(-1), wantErr: true},
		{score: float64(6), wantErr: true},
		{score: 2.5, wantErr: true},
		{score: "3", wantErr: true},
		{score: nil, wantErr: true},
		{score: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		body := map[string]any{"butterflyId": "b1", "score": tt.score}
		err := schema.Score.Validate(body)
		if tt.wantErr && err == nil {
			t.Errorf("score %v: expected error", tt.score)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("score %v: unexpected error: %v", tt.score, err)
		}
	}
}

func TestScoreShape_RejectsUserID(t *testing.T) {
	body := map[string]any{"butterflyId": "b1", "score": 3, "userId": "u1"}
	if err := schema.Score.Validate(body); err == nil {
		t.Error("expected body-supplied userId to be rejected")
	}
}

func TestSortOrderShape(t *testing.T) {
	for _, v := range []string{"asc", "desc"} {
		if err := schema.SortOrder.Validate(map[string]any{"sortOrder": v}); err != nil {
			t.Errorf("%q: unexpected error: %v", v, err)
		}
	}
	for _, v := range []any{"abc", "ASC", "", 1} {
		if err := schema.SortOrder.Validate(map[string]any{"sortOrder": v}); err == nil {
			t.Errorf("%v: expected error", v)
		}
	}
}

func TestValidationError_ListsEveryProblem(t *testing.T) {
	err := schema.Butterfly.Validate(map[string]any{"species": 1, "zeta": true, "alpha": 1})

	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	want := []schema.Problem{
		{Field: "commonName", Reason: "required"},
		{Field: "species", Reason: "must be a string"},
		{Field: "article", Reason: "required"},
		{Field: "alpha", Reason: "unknown field"},
		{Field: "zeta", Reason: "unknown field"},
	}
	if len(verr.Problems) != len(want) {
		t.Fatalf("expected %d problems, got %d: %v", len(want), len(verr.Problems), verr.Problems)
	}
	for i := range want {
		if verr.Problems[i] != want[i] {
			t.Errorf("problem %d: expected %+v, got %+v", i, want[i], verr.Problems[i])
		}
	}
	if !strings.HasPrefix(err.Error(), "lepidoptera: invalid butterfly:") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAsInteger(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int(3), 3, true},
		{int64(-2), -2, true},
		{uint8(7), 7, true},
		{float64(5), 5, true},
		{float32(1), 1, true},
		{json.Number("42"), 42, true},
		{json.Number("4.0"), 4, true},
		{json.Number("4.5"), 0, false},
		{1.25, 0, false},
		{math.Inf(1), 0, false},
		{"1", 0, false},
		{true, 0, false},
		{uint64(math.MaxUint64), 0, false},
	}

	for _, tt := range tests {
		got, ok := schema.AsInteger(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("AsInteger(%#v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
