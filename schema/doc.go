// Package schema validates candidate records against strict, declarative shapes.
//
// A [Shape] lists every field a record may carry. Validation fails when a
// declared field is missing or has the wrong type or range, and when the
// record carries any key the shape does not declare (including "id", which
// the store always assigns).
//
// The declared shapes are [Butterfly], [User], [Score] and [SortOrder].
//
//	if err := schema.Butterfly.Validate(body); err != nil {
//	    // errors.Is(err, schema.ErrInvalid) == true
//	}
package schema
