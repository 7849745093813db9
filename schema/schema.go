package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalid is wrapped by every *ValidationError.
var ErrInvalid = errors.New("lepidoptera: invalid record")

// Kind is the primitive type a field must hold.
type Kind int

const (
	// String accepts any JSON string, including the empty string.
	String Kind = iota + 1

	// Integer accepts whole numbers within [Field.Min, Field.Max].
	Integer

	// Enum accepts a string equal to one of Field.Values.
	Enum
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Enum:
		return "enum"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field declares a single key of a shape.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Min and Max bound Integer fields (inclusive).
	Min int64
	Max int64

	// Values lists the accepted values of an Enum field.
	Values []string
}

// Shape is a strict object schema: exactly the declared fields, nothing else.
type Shape struct {
	Name   string
	Fields []Field
}

// Problem describes why one key failed validation.
type Problem struct {
	Field  string
	Reason string
}

// ValidationError reports every problem found in a candidate.
type ValidationError struct {
	Shape    string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Field == "" {
			parts = append(parts, p.Reason)
			continue
		}
		parts = append(parts, p.Field+": "+p.Reason)
	}
	return fmt.Sprintf("lepidoptera: invalid %s: %s", e.Shape, strings.Join(parts, "; "))
}

// Unwrap makes errors.Is(err, ErrInvalid) hold.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Validate checks candidate against the shape. It has no side effects.
// A nil candidate is treated as a missing object.
func (s Shape) Validate(candidate map[string]any) error {
	if candidate == nil {
		return &ValidationError{
			Shape:    s.Name,
			Problems: []Problem{{Reason: "expected an object"}},
		}
	}

	var problems []Problem
	declared := make(map[string]struct{}, len(s.Fields))

	for _, f := range s.Fields {
		declared[f.Name] = struct{}{}
		value, present := candidate[f.Name]
		if !present {
			if f.Required {
				problems = append(problems, Problem{Field: f.Name, Reason: "required"})
			}
			continue
		}
		if reason := f.check(value); reason != "" {
			problems = append(problems, Problem{Field: f.Name, Reason: reason})
		}
	}

	var unknown []string
	for key := range candidate {
		if _, ok := declared[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		problems = append(problems, Problem{Field: key, Reason: "unknown field"})
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Shape: s.Name, Problems: problems}
}

// check returns an empty string when value satisfies the field.
func (f Field) check(value any) string {
	switch f.Kind {
	case String:
		if _, ok := value.(string); !ok {
			return "must be a string"
		}
	case Integer:
		n, ok := AsInteger(value)
		if !ok {
			return "must be an integer"
		}
		if n < f.Min || n > f.Max {
			return fmt.Sprintf("must be between %d and %d", f.Min, f.Max)
		}
	case Enum:
		str, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		for _, v := range f.Values {
			if v == str {
				return ""
			}
		}
		return fmt.Sprintf("must be one of: %s", strings.Join(f.Values, ", "))
	default:
		return "unsupported kind " + f.Kind.String()
	}
	return ""
}

// AsInteger converts a decoded JSON number (or a native Go integer) to int64.
// Fractional, infinite and non-numeric values are rejected.
func AsInteger(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return wholeFloat(float64(v))
	case float64:
		return wholeFloat(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return wholeFloat(f)
	default:
		return 0, false
	}
}

func wholeFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
