package outcome

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jacentio/lepidoptera/service"
)

// DecodeObject parses a request body as a JSON object. An empty body yields a
// nil map, which the services reject like any other incomplete body. Anything
// that is not a single JSON object is invalid input.
func DecodeObject(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrInvalidInput, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", service.ErrInvalidInput)
	}
	return body, nil
}
