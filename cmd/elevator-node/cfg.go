package main

import (
	"fmt"
	"os"
	"time"

	jsonvalidator "github.com/galdor/go-json-validator"
)

type NodeCfg struct {
	NbFloors int `json:"nbFloors"`

	DataDirectory string `json:"dataDirectory"`

	CostFunction        string `json:"costFunction"`
	CostFunctionTimeout int    `json:"costFunctionTimeout"` // milliseconds

	BroadcastPort    int    `json:"broadcastPort"`
	BroadcastAddress string `json:"broadcastAddress"`
	LocalAddress     string `json:"localAddress"`
	PublicAddress    string `json:"publicAddress"`

	APIAddress string `json:"apiAddress"`

	// Milliseconds, zero for the default value
	HeartbeatInterval    int `json:"heartbeatInterval"`
	PeerTimeout          int `json:"peerTimeout"`
	DiscoveryWindow      int `json:"discoveryWindow"`
	RetransmitTimeout    int `json:"retransmitTimeout"`
	MaxRetransmitTimeout int `json:"maxRetransmitTimeout"`
	AssignmentInterval   int `json:"assignmentInterval"`
	AssignmentCycle      int `json:"assignmentCycle"`
}

func DefaultNodeCfg() NodeCfg {
	return NodeCfg{
		NbFloors: 4,

		DataDirectory: "data",

		CostFunctionTimeout: 1000,

		BroadcastPort: 16569,
		LocalAddress:  "0.0.0.0:16570",

		APIAddress: "localhost:8081",
	}
}

func (cfg *NodeCfg) ValidateJSON(v *jsonvalidator.Validator) {
	v.CheckIntMin("nbFloors", cfg.NbFloors, 2)

	v.CheckIntMin("costFunctionTimeout", cfg.CostFunctionTimeout, 0)

	v.CheckIntMinMax("broadcastPort", cfg.BroadcastPort, 1, 65535)
	v.CheckStringNotEmpty("localAddress", cfg.LocalAddress)
	v.CheckStringNotEmpty("apiAddress", cfg.APIAddress)

	v.CheckIntMin("heartbeatInterval", cfg.HeartbeatInterval, 0)
	v.CheckIntMin("peerTimeout", cfg.PeerTimeout, 0)
	v.CheckIntMin("discoveryWindow", cfg.DiscoveryWindow, 0)
	v.CheckIntMin("retransmitTimeout", cfg.RetransmitTimeout, 0)
	v.CheckIntMin("maxRetransmitTimeout", cfg.MaxRetransmitTimeout, 0)
	v.CheckIntMin("assignmentInterval", cfg.AssignmentInterval, 0)
	v.CheckIntMin("assignmentCycle", cfg.AssignmentCycle, 0)
}

// LoadEnv applies the overrides of the environment, which may come from a
// .env file.
func (cfg *NodeCfg) LoadEnv() {
	if value := os.Getenv("ELEVATOR_COST_FUNCTION"); value != "" {
		cfg.CostFunction = value
	}

	if value := os.Getenv("ELEVATOR_DATA_DIRECTORY"); value != "" {
		cfg.DataDirectory = value
	}
}

// Check verifies the settings which can come from the environment and are
// therefore not covered by JSON validation.
func (cfg *NodeCfg) Check() error {
	if cfg.CostFunction == "" {
		return fmt.Errorf("missing cost function path")
	}

	if cfg.DataDirectory == "" {
		return fmt.Errorf("missing or empty data directory")
	}

	return nil
}

func milliseconds(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
