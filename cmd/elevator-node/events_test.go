package main

import (
	"testing"

	"github.com/galdor/go-elevator/pkg/coord"
)

func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		data   string
		events []coord.Event
	}{
		{
			`{"type": "doorOpened"}`,
			[]coord.Event{{Type: coord.EventTypeDoorOpened}},
		},
		{
			` [{"type": "buttonPressed", "kind": "hall", "floor": 2,
			    "direction": "down"},
			   {"type": "floorReached", "floor": 1, "motor": "up"}]`,
			[]coord.Event{
				{Type: coord.EventTypeButtonPressed, Kind: coord.TaskKindHall,
					Floor: 2, Direction: coord.HallDirectionDown},
				{Type: coord.EventTypeFloorReached, Floor: 1,
					Motor: coord.MotorDirectionUp},
			},
		},
	}

	for _, test := range tests {
		events, err := DecodeEvents([]byte(test.data))
		if err != nil {
			t.Errorf("cannot decode %q: %v", test.data, err)
			continue
		}

		if len(events) != len(test.events) {
			t.Errorf("%q: decoded %d events instead of %d", test.data,
				len(events), len(test.events))
			continue
		}

		for i, ev := range events {
			if ev != test.events[i] {
				t.Errorf("%q: event %d is %#v instead of %#v", test.data, i,
					ev, test.events[i])
			}
		}
	}

	for _, data := range []string{"", "  ", "{", `[{"type": 42}]`} {
		if _, err := DecodeEvents([]byte(data)); err == nil {
			t.Errorf("invalid data %q was decoded", data)
		}
	}
}
