// Package outcome maps service results onto the HTTP status codes and JSON
// bodies shared by the echo server and the Lambda gateway.
package outcome

import (
	"errors"
	"net/http"

	"github.com/jacentio/lepidoptera/service"
)

// Response messages.
const (
	MsgRunning          = "Server is running!"
	MsgInvalidBody      = "Invalid request body"
	MsgInvalidSortOrder = "Invalid query sort order, need one of: `asc`, `desc`"
	MsgNotFound         = "Not found"
	MsgInternal         = "Internal server error"
)

// Error is the body of every failed response.
type Error struct {
	Error string `json:"error"`
}

// Message is the body of the root liveness response.
type Message struct {
	Message string `json:"message"`
}

// Classify returns the status code and error message for err. Errors the
// services do not classify are internal.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSortOrder):
		return http.StatusBadRequest, MsgInvalidSortOrder
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, MsgInvalidBody
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
