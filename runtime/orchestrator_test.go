package runtime

import (
	"chat-pulse/contract"
	"chat-pulse/mocks"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOrchestrator_StartRunsWorkersUnderSupervisor(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.Default()

	supervisor := mocks.NewMockISupervisor(ctrl)
	worker := mocks.NewMockWorker(ctrl)
	registry := NewRegistry(log)
	orchestrator := NewOrchestrator(log, supervisor, registry, NewRoomManager(log, registry, nil, nil, nil))

	supervisor.EXPECT().Add(worker).Return(supervisor)
	supervisor.EXPECT().Run(gomock.Any())

	req.NoError(orchestrator.Start(context.Background(), worker))

	// Then a second start is refused
	req.Error(orchestrator.Start(context.Background()))
}

func TestOrchestrator_StopClosesConnections(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := slog.Default()

	supervisor := mocks.NewMockISupervisor(ctrl)
	registry := NewRegistry(log)
	orchestrator := NewOrchestrator(log, supervisor, registry, NewRoomManager(log, registry, nil, nil, nil))

	handle := &recordingHandle{}
	_, err := registry.Register("alice", handle)
	req.NoError(err)
	req.Equal(Stats{Connections: 1}, orchestrator.Stats())

	supervisor.EXPECT().Stop()
	orchestrator.Stop()

	req.Equal(Stats{}, orchestrator.Stats())
	req.Equal(1, handle.closed)
}

var _ contract.ISupervisor = (*mocks.MockISupervisor)(nil)
