package store

import (
	"maps"

	"github.com/google/uuid"
)

// Collection names.
const (
	Butterflies = "butterflies"
	Users       = "users"
	Scores      = "scores"
)

// FieldID is the store-assigned identifier key of every record.
const FieldID = "id"

// Collections lists every collection in persisted order.
var Collections = []string{Butterflies, Users, Scores}

// IsCollection reports whether name is a collection the store owns.
func IsCollection(name string) bool {
	switch name {
	case Butterflies, Users, Scores:
		return true
	}
	return false
}

// Record is a flat JSON object stored in a collection.
type Record map[string]any

// ID returns the record id, or "" when absent.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Clone returns a shallow copy. Values are JSON primitives, so a shallow
// copy is enough to isolate callers from stored state.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// IDGenerator produces unique record ids.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID calls f.
func (f IDGeneratorFunc) NewID() string { return f() }

// UUIDGenerator produces random (version 4) UUID strings.
type UUIDGenerator struct{}

// NewID returns a new UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
