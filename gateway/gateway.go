// Package gateway serves the entity services as an AWS Lambda behind an API
// Gateway REST proxy integration.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/lepidoptera/internal/outcome"
	"github.com/jacentio/lepidoptera/service"
)

// Handler routes API Gateway proxy requests to the entity services.
type Handler struct {
	services *service.Services
	logger   *slog.Logger
}

// NewHandler creates a new gateway handler.
func NewHandler(services *service.Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		services: services,
		logger:   logger,
	}
}

// Handle processes a single proxy request. Failures are always reported as a
// response; the returned error is non-nil only when the response itself
// cannot be encoded, which makes API Gateway answer 502.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body, err := h.dispatch(ctx, req)
	if err != nil {
		status, msg := outcome.Classify(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("request failed",
				"method", req.HTTPMethod,
				"path", req.Path,
				"requestID", req.RequestContext.RequestID,
				"error", err,
			)
		}
		return respond(status, outcome.Error{Error: msg})
	}
	return respond(http.StatusOK, body)
}

// errNoRoute marks requests that match no route.
var errNoRoute = fmt.Errorf("%w: no route", service.ErrNotFound)

// dispatch runs the operation addressed by req and returns the success body.
func (h *Handler) dispatch(ctx context.Context, req events.APIGatewayProxyRequest) (any, error) {
	segments := splitPath(req.Path)

	switch {
	case len(segments) == 0 && req.HTTPMethod == http.MethodGet:
		return outcome.Message{Message: outcome.MsgRunning}, nil

	case len(segments) == 1 && req.HTTPMethod == http.MethodPost:
		fields, err := requestBody(req)
		if err != nil {
			return nil, err
		}
		switch segments[0] {
		case "butterflies":
			return h.services.Butterflies.Create(ctx, fields)
		case "users":
			return h.services.Users.Create(ctx, fields)
		}

	case len(segments) == 2 && req.HTTPMethod == http.MethodGet:
		id := segments[1]
		switch segments[0] {
		case "butterflies":
			return h.services.Butterflies.Get(ctx, id)
		case "users":
			return h.services.Users.Get(ctx, id)
		case "scores":
			return h.services.Scores.List(ctx, id, req.QueryStringParameters["sortOrder"])
		}

	case len(segments) == 2 && req.HTTPMethod == http.MethodPost && segments[0] == "scores":
		fields, err := requestBody(req)
		if err != nil {
			return nil, err
		}
		return h.services.Scores.Create(ctx, segments[1], fields)
	}

	return nil, errNoRoute
}

// splitPath returns the non-empty segments of p. Proxy paths arrive already
// unescaped.
func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// requestBody decodes the proxy body as a JSON object.
func requestBody(req events.APIGatewayProxyRequest) (map[string]any, error) {
	data := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: body: %w", service.ErrInvalidInput, err)
		}
		data = decoded
	}
	return outcome.DecodeObject(data)
}

func respond(status int, body any) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("encode response: %w", err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}
