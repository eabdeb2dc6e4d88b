package main

import (
	"testing"

	jsonvalidator "github.com/galdor/go-json-validator"
)

func TestNodeCfgEnv(t *testing.T) {
	t.Setenv("ELEVATOR_COST_FUNCTION", "/usr/local/bin/hall-request-assigner")
	t.Setenv("ELEVATOR_DATA_DIRECTORY", "/var/lib/elevator")

	cfg := DefaultNodeCfg()

	if err := cfg.Check(); err == nil {
		t.Errorf("configuration without cost function was accepted")
	}

	cfg.LoadEnv()

	if cfg.CostFunction != "/usr/local/bin/hall-request-assigner" {
		t.Errorf("unexpected cost function %q", cfg.CostFunction)
	}

	if cfg.DataDirectory != "/var/lib/elevator" {
		t.Errorf("unexpected data directory %q", cfg.DataDirectory)
	}

	if err := cfg.Check(); err != nil {
		t.Errorf("invalid configuration: %v", err)
	}
}

func TestNodeCfgValidation(t *testing.T) {
	cfg := DefaultNodeCfg()
	if err := jsonvalidator.Validate(&cfg); err != nil {
		t.Fatalf("invalid default configuration: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*NodeCfg)
	}{
		{"single floor", func(cfg *NodeCfg) { cfg.NbFloors = 1 }},
		{"null broadcast port", func(cfg *NodeCfg) { cfg.BroadcastPort = 0 }},
		{"broadcast port out of range", func(cfg *NodeCfg) { cfg.BroadcastPort = 70000 }},
		{"empty api address", func(cfg *NodeCfg) { cfg.APIAddress = "" }},
		{"negative cost function timeout", func(cfg *NodeCfg) { cfg.CostFunctionTimeout = -1 }},
		{"negative peer timeout", func(cfg *NodeCfg) { cfg.PeerTimeout = -1 }},
		{"negative max retransmit timeout", func(cfg *NodeCfg) { cfg.MaxRetransmitTimeout = -5 }},
		{"negative assignment cycle", func(cfg *NodeCfg) { cfg.AssignmentCycle = -1 }},
	}

	for _, test := range tests {
		cfg := DefaultNodeCfg()
		test.modify(&cfg)

		if err := jsonvalidator.Validate(&cfg); err == nil {
			t.Errorf("%s: invalid configuration was accepted", test.name)
		}
	}

	cfg.MaxRetransmitTimeout = 2000
	cfg.AssignmentCycle = 500

	if err := jsonvalidator.Validate(&cfg); err != nil {
		t.Errorf("invalid configuration: %v", err)
	}

	if d := milliseconds(cfg.MaxRetransmitTimeout); d.Seconds() != 2 {
		t.Errorf("unexpected max retransmit timeout %v", d)
	}
}
