// Package runtime holds the live state of the engine: who is connected and
// which live channels they listen on. It carries no persistence and no
// business rules.
package runtime

import (
	"chat-pulse/contract"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Stats is a point-in-time view of the live state.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   *Registry
	rooms      *RoomManager
	started    bool
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, rooms *RoomManager) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		rooms:      rooms,
	}
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		Connections: o.registry.Len(),
		Rooms:       o.rooms.RoomCount(),
	}
}

// Start registers the background workers (heartbeat, transport, sampling)
// and blocks while the supervisor runs them.
func (o *Orchestrator) Start(ctx context.Context, workers ...contract.Worker) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true
	o.supervisor.Add(workers...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "workers", len(workers))
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers and closes every remaining connection.
// No offline presence is propagated: the node is going away, not the users.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
	closed := o.registry.CloseAll()
	o.log.Debug("Connections closed", "count", closed)
}
