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

func newTestDetectorService() (*DetectorService, *fakeFalcBoardsRepo, *fakeZonesRepo, *fakeDetectorsRepo, *fakeEventLogsRepo) {
	falcBoards := newFakeFalcBoardsRepo()
	zones := newFakeZonesRepo()
	detectors := newFakeDetectorsRepo()
	events := newFakeEventLogsRepo()
	logger := zap.NewNop()
	eventSvc := NewEventLogService(events, detectors, nil, logger)
	svc := NewDetectorService(falcBoards, zones, detectors, eventSvc, logger)
	return svc, falcBoards, zones, detectors, events
}

func TestCreateDetector_Success(t *testing.T) {
	svc, falcBoards, _, _, events := newTestDetectorService()
	b := seedFalcBoard(falcBoards, uuid.New().String(), 10, true, domain.BoardStatusNormal)
	name := "Lobby Smoke 1"

	detector, err := svc.CreateDetector(context.Background(), &CreateDetectorRequest{
		FalcBoardID:     b.BoardID,
		DetectorAddress: 1,
		DetectorName:    &name,
		DetectorType:    domain.DetectorTypeSmoke,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DetectorStatusNormal, detector.Status)
	assert.True(t, detector.IsActive)
	assert.NotEmpty(t, detector.DetectorID)

	event := events.lastEvent()
	require.NotNil(t, event)
	assert.Equal(t, domain.EventTypeConfigChange, event.EventType)
	assert.Equal(t, domain.SourceTypeDetector, event.SourceType)
	assert.Contains(t, event.Description, "Lobby Smoke 1")
}

func TestCreateDetector_CapacityExceeded(t *testing.T) {
	svc, falcBoards, _, detectors, _ := newTestDetectorService()
	b := seedFalcBoard(falcBoards, uuid.New().String(), 2, true, domain.BoardStatusNormal)
	for addr := 1; addr <= 2; addr++ {
		detectors.add(domain.Detector{
			DetectorID:      uuid.New().String(),
			FalcBoardID:     b.BoardID,
			DetectorAddress: addr,
			DetectorType:    domain.DetectorTypeSmoke,
			Status:          domain.DetectorStatusNormal,
		}, b.BoardName, true, b.PanelID, domain.PanelStatusOnline)
	}

	_, err := svc.CreateDetector(context.Background(), &CreateDetectorRequest{
		FalcBoardID:     b.BoardID,
		DetectorAddress: 3,
		DetectorType:    domain.DetectorTypeSmoke,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.Contains(t, err.Error(), `falc board "FALC-01" allows at most 2 detectors`)
}

func TestCreateDetector_InvalidAddress(t *testing.T) {
	svc, falcBoards, _, _, _ := newTestDetectorService()
	b := seedFalcBoard(falcBoards, uuid.New().String(), 10, true, domain.BoardStatusNormal)

	_, err := svc.CreateDetector(context.Background(), &CreateDetectorRequest{
		FalcBoardID:     b.BoardID,
		DetectorAddress: 0,
		DetectorType:    domain.DetectorTypeSmoke,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestCreateDetector_InvalidType(t *testing.T) {
	svc, falcBoards, _, _, _ := newTestDetectorService()
	b := seedFalcBoard(falcBoards, uuid.New().String(), 10, true, domain.BoardStatusNormal)

	_, err := svc.CreateDetector(context.Background(), &CreateDetectorRequest{
		FalcBoardID:     b.BoardID,
		DetectorAddress: 1,
		DetectorType:    "radar",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestCreateDetector_UnknownZoneRejected(t *testing.T) {
	svc, falcBoards, _, _, _ := newTestDetectorService()
	b := seedFalcBoard(falcBoards, uuid.New().String(), 10, true, domain.BoardStatusNormal)
	zoneID := uuid.New().String()

	_, err := svc.CreateDetector(context.Background(), &CreateDetectorRequest{
		FalcBoardID:     b.BoardID,
		ZoneID:          &zoneID,
		DetectorAddress: 1,
		DetectorType:    domain.DetectorTypeSmoke,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeleteDetector_EmitsConfigChange(t *testing.T) {
	svc, _, _, detectors, events := newTestDetectorService()
	d := domain.Detector{
		DetectorID:      uuid.New().String(),
		FalcBoardID:     uuid.New().String(),
		DetectorAddress: 4,
		DetectorName:    "Kitchen Heat 4",
		DetectorType:    domain.DetectorTypeHeat,
		Status:          domain.DetectorStatusNormal,
	}
	detectors.add(d, "FALC-01", true, uuid.New().String(), domain.PanelStatusOnline)

	require.NoError(t, svc.DeleteDetector(context.Background(), d.DetectorID))
	_, err := detectors.GetDetector(context.Background(), d.DetectorID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	event := events.lastEvent()
	require.NotNil(t, event)
	assert.Equal(t, domain.EventTypeConfigChange, event.EventType)
}
