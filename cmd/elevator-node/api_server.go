package main

import (
	"io"
	"net/http"

	"github.com/galdor/go-elevator/pkg/coord"
	"github.com/galdor/go-service/pkg/shttp"
)

type APIServer struct {
	Service *Service
}

type TasksResponse struct {
	Tasks   []coord.Task `json:"tasks"`
	Version uint64       `json:"version"`
}

func NewAPIServer(s *Service) (*APIServer, error) {
	api := APIServer{
		Service: s,
	}

	return &api, nil
}

func (api *APIServer) Init() error {
	api.initRoutes()
	return nil
}

func (api *APIServer) initRoutes() {
	api.Route("/status", "GET", api.hStatusGET)
	api.Route("/tasks", "GET", api.hTasksGET)
	api.Route("/events", "POST", api.hEventsPOST)
}

func (api *APIServer) Route(pathPattern, method string, routeFunc shttp.RouteFunc) {
	s := api.Service.Service.HTTPServer("api")
	s.Route(pathPattern, method, routeFunc)
}

func (api *APIServer) hStatusGET(h *shttp.Handler) {
	status, err := api.Service.node.Status()
	if err != nil {
		h.ReplyError(503, "node_unavailable", "%v", err)
		return
	}

	h.ReplyJSON(200, status)
}

func (api *APIServer) hTasksGET(h *shttp.Handler) {
	tasks, version := api.Service.tasks.Get()

	h.ReplyJSON(200, TasksResponse{Tasks: tasks, Version: version})
}

func (api *APIServer) hEventsPOST(h *shttp.Handler) {
	data, err := io.ReadAll(http.MaxBytesReader(h.ResponseWriter,
		h.Request.Body, 1_000_000))
	if err != nil {
		h.ReplyError(400, "invalid_request_body", "cannot read body: %v", err)
		return
	}

	events, err := DecodeEvents(data)
	if err != nil {
		h.ReplyError(400, "invalid_request_body", "%v", err)
		return
	}

	for _, ev := range events {
		if err := api.Service.node.Submit(ev); err != nil {
			h.ReplyError(400, "invalid_event", "%v", err)
			return
		}
	}

	h.ReplyEmpty(204)
}
