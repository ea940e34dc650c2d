package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
)

func newTestCircuitService() (*CircuitService, *fakeNacBoardsRepo, *fakeCircuitsRepo, *fakeEventLogsRepo) {
	nacBoards := newFakeNacBoardsRepo()
	zones := newFakeZonesRepo()
	circuits := newFakeCircuitsRepo()
	events := newFakeEventLogsRepo()
	logger := zap.NewNop()
	eventSvc := NewEventLogService(events, newFakeDetectorsRepo(), nil, logger)
	svc := NewCircuitService(nacBoards, zones, circuits, eventSvc, logger)
	return svc, nacBoards, circuits, events
}

func seedNacBoard(nacBoards *fakeNacBoardsRepo, circuitCount int) *domain.NacBoard {
	b := &domain.NacBoard{
		BoardID:      uuid.New().String(),
		PanelID:      uuid.New().String(),
		BoardName:    "NAC-01",
		CircuitCount: circuitCount,
		IsActive:     true,
		Status:       domain.BoardStatusNormal,
	}
	nacBoards.boards[b.BoardID] = b
	return b
}

func TestCreateCircuit_Success(t *testing.T) {
	svc, nacBoards, _, events := newTestCircuitService()
	b := seedNacBoard(nacBoards, 4)

	circuit, err := svc.CreateCircuit(context.Background(), &CreateCircuitRequest{
		NacBoardID:    b.BoardID,
		CircuitName:   "West Wing Sounder",
		CircuitNumber: 2,
		OutputType:    domain.OutputTypeAudible,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, circuit.CircuitNumber)
	assert.NotEmpty(t, circuit.CircuitID)

	event := events.lastEvent()
	require.NotNil(t, event)
	assert.Equal(t, domain.EventTypeConfigChange, event.EventType)
	assert.Equal(t, domain.SourceTypeNAC, event.SourceType)
}

func TestCreateCircuit_NumberOutOfRange(t *testing.T) {
	svc, nacBoards, _, _ := newTestCircuitService()
	b := seedNacBoard(nacBoards, 4)

	for _, number := range []int{0, 5} {
		_, err := svc.CreateCircuit(context.Background(), &CreateCircuitRequest{
			NacBoardID:    b.BoardID,
			CircuitName:   "Sounder",
			CircuitNumber: number,
			OutputType:    domain.OutputTypeAudible,
		})
		require.Error(t, err, "number %d", number)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
		assert.Contains(t, err.Error(), "circuit_number must be between 1 and 4")
	}
}

func TestCreateCircuit_InvalidOutputType(t *testing.T) {
	svc, nacBoards, _, _ := newTestCircuitService()
	b := seedNacBoard(nacBoards, 4)

	_, err := svc.CreateCircuit(context.Background(), &CreateCircuitRequest{
		NacBoardID:    b.BoardID,
		CircuitName:   "Sounder",
		CircuitNumber: 1,
		OutputType:    "siren",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestUpdateCircuit_NumberRevalidatedAgainstBoard(t *testing.T) {
	svc, nacBoards, circuits, _ := newTestCircuitService()
	b := seedNacBoard(nacBoards, 4)
	c := domain.NacCircuit{
		CircuitID:     uuid.New().String(),
		NacBoardID:    b.BoardID,
		CircuitNumber: 1,
		CircuitName:   "Sounder",
		OutputType:    domain.OutputTypeAudible,
		Status:        domain.CircuitStatusNormal,
		IsActive:      true,
	}
	circuits.add(c, b.BoardName, true, b.PanelID, domain.PanelStatusOnline)

	nine := 9
	_, err := svc.UpdateCircuit(context.Background(), &UpdateCircuitRequest{
		CircuitID:     c.CircuitID,
		CircuitNumber: &nine,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestDeleteCircuit_EmitsConfigChange(t *testing.T) {
	svc, nacBoards, circuits, events := newTestCircuitService()
	b := seedNacBoard(nacBoards, 4)
	c := domain.NacCircuit{
		CircuitID:     uuid.New().String(),
		NacBoardID:    b.BoardID,
		CircuitNumber: 1,
		CircuitName:   "Sounder",
		OutputType:    domain.OutputTypeAudible,
		Status:        domain.CircuitStatusNormal,
		IsActive:      true,
	}
	circuits.add(c, b.BoardName, true, b.PanelID, domain.PanelStatusOnline)

	require.NoError(t, svc.DeleteCircuit(context.Background(), c.CircuitID))
	_, err := circuits.GetCircuit(context.Background(), c.CircuitID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	event := events.lastEvent()
	require.NotNil(t, event)
	assert.Equal(t, domain.EventTypeConfigChange, event.EventType)
}
