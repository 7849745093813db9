package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jacentio/lepidoptera/query"
	"github.com/jacentio/lepidoptera/schema"
	"github.com/jacentio/lepidoptera/store"
)

const (
	fieldUserID      = "userId"
	fieldButterflyID = "butterflyId"
	fieldScore       = "score"
)

// ScoreService handles butterfly scores.
type ScoreService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewScoreService creates a ScoreService.
func NewScoreService(st *store.Store, logger *slog.Logger) *ScoreService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreService{store: st, logger: logger}
}

// Create records a score by userID from a {butterflyId, score} body.
// Neither the user nor the butterfly has to exist.
func (s *ScoreService) Create(ctx context.Context, userID string, body map[string]any) (Score, error) {
	if err := schema.Score.Validate(body); err != nil {
		return Score{}, invalid(err)
	}

	// validated above, so the conversion cannot fail
	value, _ := schema.AsInteger(body[fieldScore])

	record, err := s.store.Create(ctx, store.Scores, store.Record{
		fieldUserID:      userID,
		fieldButterflyID: body[fieldButterflyID],
		fieldScore:       value,
	})
	if err != nil {
		return Score{}, err
	}

	score, err := decode[Score](record)
	if err != nil {
		return Score{}, err
	}
	s.logger.Debug("score created", "id", score.ID, "userId", userID, "butterflyId", score.ButterflyID)
	return score, nil
}

// List returns the scores of userID ordered by score. sortOrder is "asc",
// "desc" or empty (descending). Equal scores keep their creation order.
//
// A user without scores yields ErrNoScores, which is an ErrNotFound.
func (s *ScoreService) List(ctx context.Context, userID, sortOrder string) ([]Score, error) {
	if sortOrder != "" {
		if err := schema.SortOrder.Validate(map[string]any{"sortOrder": sortOrder}); err != nil {
			return nil, errors.Join(ErrInvalidSortOrder, err)
		}
	}
	dir, err := query.ParseDirection(sortOrder)
	if err != nil {
		return nil, errors.Join(ErrInvalidSortOrder, err)
	}

	records, err := s.store.FindAll(ctx, store.Scores, query.Where(fieldUserID, userID))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoScores
	}

	ordered := query.OrderBy(records, fieldScore, dir)
	scores := make([]Score, 0, len(ordered))
	for _, r := range ordered {
		score, err := decode[Score](r)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}
