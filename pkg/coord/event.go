package coord

import "fmt"

type EventType string

const (
	EventTypeButtonPressed EventType = "buttonPressed"
	EventTypeFloorReached  EventType = "floorReached"
	EventTypeDoorOpened    EventType = "doorOpened"
	EventTypeDoorClosed    EventType = "doorClosed"
	EventTypeTaskStarted   EventType = "taskStarted"
	EventTypeTaskCompleted EventType = "taskCompleted"
)

// Event is reported by the drive controller of the local elevator.
//
// Button and task events use Kind, Floor and, for hall tasks, Direction.
// FloorReached events use Floor and Motor, the direction the car keeps moving
// in ("stop" if it stopped at the floor).
type Event struct {
	Type      EventType      `json:"type"`
	Kind      TaskKind       `json:"kind,omitempty"`
	Floor     int            `json:"floor"`
	Direction HallDirection  `json:"direction,omitempty"`
	Motor     MotorDirection `json:"motor,omitempty"`
}

func (ev Event) String() string {
	switch ev.Type {
	case EventTypeButtonPressed, EventTypeTaskStarted, EventTypeTaskCompleted:
		return fmt.Sprintf("%s(%v)", ev.Type, ev.Task())

	case EventTypeFloorReached:
		return fmt.Sprintf("%s(%d, %s)", ev.Type, ev.Floor, ev.Motor)

	default:
		return string(ev.Type)
	}
}

// Task returns the task designated by a button or task event.
func (ev Event) Task() Task {
	if ev.Kind == TaskKindHall {
		return HallTask(HallRequest{Floor: ev.Floor, Direction: ev.Direction},
			Stamp{})
	}

	return CabTask(CabRequest{Floor: ev.Floor})
}

func (ev Event) Check(nbFloors int) error {
	checkFloor := func() error {
		if ev.Floor < 0 || ev.Floor >= nbFloors {
			return fmt.Errorf("invalid floor %d", ev.Floor)
		}

		return nil
	}

	switch ev.Type {
	case EventTypeButtonPressed, EventTypeTaskStarted, EventTypeTaskCompleted:
		if err := checkFloor(); err != nil {
			return err
		}

		switch ev.Kind {
		case TaskKindCab:
		case TaskKindHall:
			switch ev.Direction {
			case HallDirectionUp:
				if ev.Floor == nbFloors-1 {
					return fmt.Errorf("no up button on the top floor")
				}

			case HallDirectionDown:
				if ev.Floor == 0 {
					return fmt.Errorf("no down button on the bottom floor")
				}

			default:
				return fmt.Errorf("invalid hall direction %q", ev.Direction)
			}

		default:
			return fmt.Errorf("invalid task kind %q", ev.Kind)
		}

	case EventTypeFloorReached:
		if err := checkFloor(); err != nil {
			return err
		}

		switch ev.Motor {
		case MotorDirectionUp, MotorDirectionDown, MotorDirectionStop:
		default:
			return fmt.Errorf("invalid motor direction %q", ev.Motor)
		}

	case EventTypeDoorOpened, EventTypeDoorClosed:

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	return nil
}
