package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/galdor/go-elevator/pkg/coord"
)

// DecodeEvents reads either a single event object or an array of events.
func DecodeEvents(data []byte) ([]coord.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if data[0] == '[' {
		var events []coord.Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("invalid events: %w", err)
		}

		return events, nil
	}

	var ev coord.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	return []coord.Event{ev}, nil
}
