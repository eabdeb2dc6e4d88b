package coord

import (
	"context"
	"errors"
	"os"
	"path"
	"runtime"
	"testing"
	"time"
)

func writeTestScript(t *testing.T, content string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not available")
	}

	scriptPath := path.Join(t.TempDir(), "assigner")

	if err := os.WriteFile(scriptPath, []byte(content), 0700); err != nil {
		t.Fatalf("cannot write %q: %v", scriptPath, err)
	}

	return scriptPath
}

func TestExecCostFunc(t *testing.T) {
	scriptPath := writeTestScript(t, `#!/bin/sh
[ "$1" = "-i" ] || exit 2
case "$2" in
  *'"hallRequests":[[true,false],[false,false]]'*) ;;
  *) exit 3 ;;
esac
echo '{"1": [[true, false, false], [false, false, true]]}'
`)

	input := CostInput{
		HallRequests: [][2]bool{{true, false}, {false, false}},
		States: map[NodeId]CostState{
			"1": {
				Behaviour:   BehaviourIdle,
				Floor:       1,
				Direction:   MotorDirectionStop,
				CabRequests: []bool{false, true},
			},
		},
	}

	costFunc := ExecCostFunc(scriptPath, time.Second)

	output, err := costFunc(context.Background(), &input)
	if err != nil {
		t.Fatalf("cannot run cost function: %v", err)
	}

	if err := output.Validate(&input); err != nil {
		t.Fatalf("invalid output: %v", err)
	}

	if rows := output["1"]; !rows[0][0] || rows[0][1] {
		t.Errorf("unexpected output %v", output)
	}
}

func TestExecCostFuncFailure(t *testing.T) {
	input := CostInput{
		HallRequests: [][2]bool{{true, false}, {false, false}},
		States:       map[NodeId]CostState{},
	}

	scripts := []string{
		"#!/bin/sh\necho 'invalid input' >&2\nexit 1\n",
		"#!/bin/sh\necho 'not json'\n",
		"#!/bin/sh\nexec sleep 5\n",
	}

	for _, script := range scripts {
		scriptPath := writeTestScript(t, script)
		costFunc := ExecCostFunc(scriptPath, 200*time.Millisecond)

		if _, err := costFunc(context.Background(), &input); err == nil {
			t.Errorf("script %q did not fail", script)
		}
	}

	_, err := ExecCostFunc("/nonexistent/assigner", time.Second)(
		context.Background(), &input)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("unexpected error %v", err)
	}
}
