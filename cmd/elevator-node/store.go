package main

import (
	"sync"

	"github.com/galdor/go-elevator/pkg/coord"
)

// TaskStore mirrors the task list of the local node for the drive controller,
// which polls it over HTTP.
type TaskStore struct {
	Tasks   []coord.Task
	Version uint64

	mu sync.RWMutex
}

func NewTaskStore() *TaskStore {
	s := TaskStore{
		Tasks: []coord.Task{},
	}

	return &s
}

func (s *TaskStore) Get() ([]coord.Task, uint64) {
	s.mu.RLock()
	tasks := append([]coord.Task{}, s.Tasks...)
	version := s.Version
	s.mu.RUnlock()

	return tasks, version
}

func (s *TaskStore) Put(tasks []coord.Task) {
	s.mu.Lock()
	s.Tasks = tasks
	s.Version++
	s.mu.Unlock()
}
