package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/lepidoptera/schema"
	"github.com/jacentio/lepidoptera/store"
)

// Services bundles the three entity services over one store.
type Services struct {
	Butterflies *ButterflyService
	Users       *UserService
	Scores      *ScoreService
}

// New creates every service over st.
func New(st *store.Store, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{
		Butterflies: NewButterflyService(st, logger),
		Users:       NewUserService(st, logger),
		Scores:      NewScoreService(st, logger),
	}
}

// getEntity loads one record by id and decodes it.
func getEntity[T any](ctx context.Context, st *store.Store, collection, id string) (T, error) {
	var zero T
	record, err := st.FindByID(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, collection, id)
	}
	if err != nil {
		return zero, err
	}
	return decode[T](record)
}

// createEntity validates body against shape, stores it and decodes the result.
func createEntity[T any](ctx context.Context, st *store.Store, shape schema.Shape, collection string, body map[string]any) (T, error) {
	var zero T
	if err := shape.Validate(body); err != nil {
		return zero, invalid(err)
	}
	record, err := st.Create(ctx, collection, store.Record(body))
	if err != nil {
		return zero, err
	}
	return decode[T](record)
}

// ButterflyService handles butterflies.
type ButterflyService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewButterflyService creates a ButterflyService.
func NewButterflyService(st *store.Store, logger *slog.Logger) *ButterflyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ButterflyService{store: st, logger: logger}
}

// Get returns the butterfly with the given id.
func (s *ButterflyService) Get(ctx context.Context, id string) (Butterfly, error) {
	return getEntity[Butterfly](ctx, s.store, store.Butterflies, id)
}

// Create registers a butterfly from a {commonName, species, article} body.
func (s *ButterflyService) Create(ctx context.Context, body map[string]any) (Butterfly, error) {
	b, err := createEntity[Butterfly](ctx, s.store, schema.Butterfly, store.Butterflies, body)
	if err != nil {
		return Butterfly{}, err
	}
	s.logger.Debug("butterfly created", "id", b.ID, "species", b.Species)
	return b, nil
}

// UserService handles users.
type UserService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(st *store.Store, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: st, logger: logger}
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id string) (User, error) {
	return getEntity[User](ctx, s.store, store.Users, id)
}

// Create registers a user from a {username} body.
func (s *UserService) Create(ctx context.Context, body map[string]any) (User, error) {
	u, err := createEntity[User](ctx, s.store, schema.User, store.Users, body)
	if err != nil {
		return User{}, err
	}
	s.logger.Debug("user created", "id", u.ID)
	return u, nil
}
