// Package query filters and orders flat records.
//
// Records are plain JSON objects (map[string]any or any named map type with
// that underlying type). Filtering keeps the input order; ordering is a
// stable sort on one numeric field, so ties always keep their insertion order.
package query

import (
	"errors"
	"slices"

	"github.com/jacentio/lepidoptera/schema"
)

// ErrInvalidDirection is returned by ParseDirection for anything but "asc" or "desc".
var ErrInvalidDirection = errors.New("lepidoptera: invalid sort direction")

// Direction is the order applied by OrderBy.
type Direction int

const (
	// Descending orders larger values first.
	Descending Direction = iota

	// Ascending orders smaller values first.
	Ascending
)

// DefaultDirection applies when the caller does not choose one.
const DefaultDirection = Descending

func (d Direction) String() string {
	if d == Ascending {
		return schema.SortAsc
	}
	return schema.SortDesc
}

// ParseDirection maps "asc" and "desc" to a Direction. The empty string
// selects DefaultDirection.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "":
		return DefaultDirection, nil
	case schema.SortAsc:
		return Ascending, nil
	case schema.SortDesc:
		return Descending, nil
	default:
		return DefaultDirection, ErrInvalidDirection
	}
}

// Predicate selects records.
type Predicate func(map[string]any) bool

// All matches every record.
func All() Predicate {
	return func(map[string]any) bool { return true }
}

// Where matches records whose field equals value. A missing field never matches.
func Where(field string, value any) Predicate {
	return func(r map[string]any) bool {
		v, ok := r[field]
		return ok && v == value
	}
}

// Filter returns the records matching pred, in input order. The result is
// never nil.
func Filter[R ~map[string]any](records []R, pred Predicate) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if pred == nil || pred(map[string]any(r)) {
			out = append(out, r)
		}
	}
	return out
}

// OrderBy returns a copy of records stably sorted by the numeric field key.
// Records whose key is missing or not a number sort as zero.
func OrderBy[R ~map[string]any](records []R, key string, dir Direction) []R {
	out := slices.Clone(records)
	if out == nil {
		out = []R{}
	}
	slices.SortStableFunc(out, func(a, b R) int {
		x, y := numeric(a[key]), numeric(b[key])
		var c int
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
		if dir == Descending {
			c = -c
		}
		return c
	})
	return out
}

func numeric(v any) float64 {
	if n, ok := schema.AsInteger(v); ok {
		return float64(n)
	}
	switch f := v.(type) {
	case float64:
		return f
	case float32:
		return float64(f)
	}
	return 0
}
