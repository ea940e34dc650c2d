package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"firewatch-data/internal/domain"
	"firewatch-data/internal/store"
)

func newTestDashboardService(t *testing.T, withCache bool) (*DashboardService, *fakePanelsRepo, *fakeDetectorsRepo, *fakeEventLogsRepo, store.KV) {
	panels := newFakePanelsRepo()
	detectors := newFakeDetectorsRepo()
	events := newFakeEventLogsRepo()
	var kv store.KV
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		kv = store.NewRedisKV(client)
	}
	svc := NewDashboardService(panels, detectors, events, kv, zap.NewNop())
	return svc, panels, detectors, events, kv
}

func TestGetOverview_CountsFromRepositories(t *testing.T) {
	svc, panels, detectors, events, _ := newTestDashboardService(t, false)

	seedPanel(panels, "Central", domain.PanelTypeControl, domain.PanelStatusOnline)
	seedPanel(panels, "Sub East", domain.PanelTypeSub, domain.PanelStatusOffline)

	detectors.add(domain.Detector{
		DetectorID:      uuid.New().String(),
		FalcBoardID:     uuid.New().String(),
		DetectorAddress: 1,
		DetectorType:    domain.DetectorTypeSmoke,
		Status:          domain.DetectorStatusAlarm,
	}, "FALC-01", true, uuid.New().String(), domain.PanelStatusOnline)

	alarm := newEvent(domain.EventTypeFireAlarm, domain.EventStatusActive,
		domain.SourceTypeDetector, uuid.New().String(), "ALARM")
	require.NoError(t, events.CreateEventLog(context.Background(), alarm))
	fault := newEvent(domain.EventTypeFault, domain.EventStatusActive,
		domain.SourceTypeDetector, uuid.New().String(), "FAULT")
	require.NoError(t, events.CreateEventLog(context.Background(), fault))
	cleared := newEvent(domain.EventTypeFireAlarm, domain.EventStatusCleared,
		domain.SourceTypeDetector, uuid.New().String(), "ALARM")
	require.NoError(t, events.CreateEventLog(context.Background(), cleared))

	overview, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, overview.PanelsByStatus[domain.PanelStatusOnline])
	assert.Equal(t, 1, overview.PanelsByStatus[domain.PanelStatusOffline])
	assert.Equal(t, 1, overview.DetectorsByStatus[domain.DetectorStatusAlarm])
	assert.Equal(t, 1, overview.ActiveAlarms)
	assert.Equal(t, 1, overview.ActiveFaults)
	assert.False(t, overview.GeneratedAt.IsZero())
}

func TestGetOverview_ServedFromCache(t *testing.T) {
	svc, panels, _, _, kv := newTestDashboardService(t, true)
	seedPanel(panels, "Central", domain.PanelTypeControl, domain.PanelStatusOnline)

	first, err := svc.GetOverview(context.Background())
	require.NoError(t, err)

	// 缓存命中后，后续库里的变化在 TTL 内不反映
	seedPanel(panels, "Sub East", domain.PanelTypeSub, domain.PanelStatusOnline)
	second, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.PanelsByStatus, second.PanelsByStatus)

	cached, err := kv.Get(context.Background(), "dashboard:overview")
	require.NoError(t, err)
	assert.NotEmpty(t, cached)
}

func TestRecentEvents_ClampsLimit(t *testing.T) {
	svc, _, _, events, _ := newTestDashboardService(t, false)

	event := newEvent(domain.EventTypeRestore, domain.EventStatusInfo,
		domain.SourceTypeDetector, uuid.New().String(), "RESTORE")
	require.NoError(t, events.CreateEventLog(context.Background(), event))

	logs, err := svc.RecentEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
