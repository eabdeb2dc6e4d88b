package main

import (
	"fmt"

	"github.com/galdor/go-elevator/pkg/coord"
	jsonvalidator "github.com/galdor/go-json-validator"
	"github.com/galdor/go-log"
	"github.com/galdor/go-program"
	"github.com/galdor/go-service/pkg/service"
	"github.com/galdor/go-service/pkg/shttp"
)

type ServiceCfg struct {
	Service service.ServiceCfg `json:"service"`
	Node    NodeCfg            `json:"node"`
}

type Service struct {
	Cfg     ServiceCfg
	Program *program.Program
	Service *service.Service
	Log     *log.Logger

	tasks     *TaskStore
	node      *coord.Node
	apiServer *APIServer
}

func (cfg *ServiceCfg) ValidateJSON(v *jsonvalidator.Validator) {
	v.CheckObject("service", &cfg.Service)

	v.CheckObject("node", &cfg.Node)
}

func NewService() *Service {
	return &Service{
		Cfg: ServiceCfg{
			Node: DefaultNodeCfg(),
		},
	}
}

func (s *Service) InitProgram(p *program.Program) {
	s.Program = p

	p.AddArgument("id", "the node identifier")
}

func (s *Service) DefaultCfg() interface{} {
	return &s.Cfg
}

func (s *Service) ValidateCfg() error {
	s.Cfg.Node.LoadEnv()

	if err := s.Cfg.Node.Check(); err != nil {
		return fmt.Errorf("invalid node configuration: %w", err)
	}

	return nil
}

func (s *Service) ServiceCfg() *service.ServiceCfg {
	cfg := &s.Cfg.Service

	if cfg.HTTPServers == nil {
		cfg.HTTPServers = make(map[string]*shttp.ServerCfg)
	}

	cfg.HTTPServers["api"] = &shttp.ServerCfg{
		Address:               s.Cfg.Node.APIAddress,
		LogSuccessfulRequests: true,
		ErrorHandler:          shttp.JSONErrorHandler,
	}

	return cfg
}

func (s *Service) Init(ss *service.Service) error {
	s.Service = ss
	s.Log = ss.Log

	s.tasks = NewTaskStore()

	if err := s.initNode(); err != nil {
		return err
	}

	if err := s.initAPIServer(); err != nil {
		return err
	}

	return nil
}

func (s *Service) initNode() error {
	nodeId := coord.NodeId(s.Service.Program.ArgumentValue("id"))
	cfg := s.Cfg.Node

	logger := s.Log.Child("coord", log.Data{
		"node": nodeId,
	})

	transport, err := coord.NewUDPTransport(coord.UDPTransportCfg{
		BroadcastPort:    cfg.BroadcastPort,
		BroadcastAddress: cfg.BroadcastAddress,
		LocalAddress:     coord.NodeAddress(cfg.LocalAddress),
		PublicAddress:    coord.NodeAddress(cfg.PublicAddress),

		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("cannot create transport: %w", err)
	}

	nodeCfg := coord.NodeCfg{
		Id:       nodeId,
		NbFloors: cfg.NbFloors,

		Transport: transport,
		CostFunc: coord.ExecCostFunc(cfg.CostFunction,
			milliseconds(cfg.CostFunctionTimeout)),

		DataDirectory: cfg.DataDirectory,

		Logger: logger,

		HeartbeatInterval:    milliseconds(cfg.HeartbeatInterval),
		PeerTimeout:          milliseconds(cfg.PeerTimeout),
		DiscoveryWindow:      milliseconds(cfg.DiscoveryWindow),
		RetransmitTimeout:    milliseconds(cfg.RetransmitTimeout),
		MaxRetransmitTimeout: milliseconds(cfg.MaxRetransmitTimeout),
		AssignmentInterval:   milliseconds(cfg.AssignmentInterval),
		AssignmentCycle:      milliseconds(cfg.AssignmentCycle),

		TasksFunc: s.tasks.Put,
	}

	node, err := coord.NewNode(nodeCfg)
	if err != nil {
		transport.Close()
		return fmt.Errorf("cannot create node: %w", err)
	}

	s.node = node

	return nil
}

func (s *Service) initAPIServer() error {
	api, err := NewAPIServer(s)
	if err != nil {
		return fmt.Errorf("cannot create api server: %w", err)
	}

	s.apiServer = api

	return nil
}

func (s *Service) Start(ss *service.Service) error {
	if err := s.node.Start(ss.ErrorChan()); err != nil {
		return fmt.Errorf("cannot start node: %w", err)
	}

	if err := s.apiServer.Init(); err != nil {
		return fmt.Errorf("cannot initialize api server: %w", err)
	}

	return nil
}

func (s *Service) Stop(ss *service.Service) {
	s.node.Stop()
}

func (s *Service) Terminate(ss *service.Service) {
}
