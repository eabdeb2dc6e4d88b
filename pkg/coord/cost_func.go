package coord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type CostState struct {
	Behaviour   Behaviour      `json:"behaviour"`
	Floor       int            `json:"floor"`
	Direction   MotorDirection `json:"direction"`
	CabRequests []bool         `json:"cabRequests"`
}

type CostInput struct {
	HallRequests [][2]bool           `json:"hallRequests"`
	States       map[NodeId]CostState `json:"states"`
}

// CostOutput associates each node with one row per floor. Rows contain the
// hall up and hall down assignments, optionally followed by the cab request
// flag which is ignored.
type CostOutput map[NodeId][][]bool

// CostFunc computes the assignment of hall requests. It is opaque to the
// coordination layer.
type CostFunc func(context.Context, *CostInput) (CostOutput, error)

type AssignerFunctionError struct {
	Err error
}

func (err *AssignerFunctionError) Error() string {
	return fmt.Sprintf("assigner function failure: %v", err.Err)
}

func (err *AssignerFunctionError) Unwrap() error {
	return err.Err
}

func (o CostOutput) Validate(input *CostInput) error {
	nbFloors := len(input.HallRequests)

	for id, rows := range o {
		if _, found := input.States[id]; !found {
			return fmt.Errorf("unknown node %q", id)
		}

		if len(rows) != nbFloors {
			return fmt.Errorf("node %q: %d rows for %d floors", id, len(rows),
				nbFloors)
		}

		for floor, row := range rows {
			if len(row) != 2 && len(row) != 3 {
				return fmt.Errorf("node %q, floor %d: invalid row of %d "+
					"values", id, floor, len(row))
			}
		}
	}

	return nil
}

// ExecCostFunc returns a cost function running an external executable with
// the JSON encoded input as argument of the -i option, and reading the JSON
// encoded output on its standard output.
func ExecCostFunc(path string, timeout time.Duration) CostFunc {
	return func(ctx context.Context, input *CostInput) (CostOutput, error) {
		inputData, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("cannot encode input: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var stdout, stderr bytes.Buffer

		cmd := exec.CommandContext(ctx, path, "-i", string(inputData))
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		cmd.WaitDelay = time.Second

		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if idx := strings.IndexAny(msg, "\r\n"); idx > 0 {
				msg = msg[:idx]
			}

			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && msg != "" {
				return nil, fmt.Errorf("cannot run %q: %w: %s", path, err, msg)
			}

			return nil, fmt.Errorf("cannot run %q: %w", path, err)
		}

		var output CostOutput
		if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
			return nil, fmt.Errorf("invalid output: %w", err)
		}

		return output, nil
	}
}
