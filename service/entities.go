package service

import (
	"encoding/json"
	"fmt"

	"github.com/jacentio/lepidoptera/store"
)

// Butterfly is a registered butterfly.
type Butterfly struct {
	ID         string `json:"id"`
	CommonName string `json:"commonName"`
	Species    string `json:"species"`
	Article    string `json:"article"`
}

// User is a registered user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Score is a user's 0-5 rating of a butterfly.
type Score struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	ButterflyID string `json:"butterflyId"`
	Score       int    `json:"score"`
}

// decode converts a stored record into an entity.
func decode[T any](r store.Record) (T, error) {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode record %q: %w", r.ID(), err)
	}
	return out, nil
}
