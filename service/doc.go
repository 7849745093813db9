// Package service orchestrates the butterfly, user and score operations.
//
// Each service validates input against its [schema.Shape], calls the
// [store.Store] and shapes the outcome for a transport layer. Outcomes are
// reported through two error kinds: [ErrInvalidInput] (a 400 at the HTTP
// boundary) and [ErrNotFound] (a 404). Any other error is a storage failure.
package service
