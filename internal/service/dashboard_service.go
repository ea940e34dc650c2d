package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
	"firewatch-data/internal/store"
)

// overviewCacheKey 总览数据缓存键
const overviewCacheKey = "dashboard:overview"

// overviewCacheTTL 总览缓存时长；监控大屏轮询间隔通常远大于此
const overviewCacheTTL = 30 * time.Second

// DashboardService 汇总统计服务
type DashboardService struct {
	panels    repository.PanelsRepository
	detectors repository.DetectorsRepository
	events    repository.EventLogsRepository
	kv        store.KV // 可为 nil
	logger    *zap.Logger
}

// NewDashboardService 创建汇总统计服务
func NewDashboardService(
	panels repository.PanelsRepository,
	detectors repository.DetectorsRepository,
	events repository.EventLogsRepository,
	kv store.KV,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		panels:    panels,
		detectors: detectors,
		events:    events,
		kv:        kv,
		logger:    logger,
	}
}

// Overview 系统总览
type Overview struct {
	PanelsByStatus     map[string]int `json:"panels_by_status"`
	DetectorsByStatus  map[string]int `json:"detectors_by_status"`
	ActiveEventsByType map[string]int `json:"active_events_by_type"`
	ActiveAlarms       int            `json:"active_alarms"`
	ActiveFaults       int            `json:"active_faults"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// GetOverview 汇总各类实体的状态分布
// 优先读 Redis 缓存；缓存不可用时直接查库，不影响可用性
func (s *DashboardService) GetOverview(ctx context.Context) (*Overview, error) {
	if s.kv != nil {
		if raw, err := s.kv.Get(ctx, overviewCacheKey); err == nil {
			var cached Overview
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if err != store.ErrMiss {
			s.logger.Warn("failed to read overview cache", zap.Error(err))
		}
	}

	panelsByStatus, err := s.panels.CountPanelsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	detectorsByStatus, err := s.detectors.CountDetectorsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	activeByType, err := s.events.CountActiveByType(ctx)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		PanelsByStatus:     panelsByStatus,
		DetectorsByStatus:  detectorsByStatus,
		ActiveEventsByType: activeByType,
		ActiveAlarms:       activeByType[domain.EventTypeFireAlarm],
		ActiveFaults:       activeByType[domain.EventTypeFault],
		GeneratedAt:        time.Now(),
	}

	if s.kv != nil {
		if raw, err := json.Marshal(overview); err == nil {
			if err := s.kv.Set(ctx, overviewCacheKey, string(raw), overviewCacheTTL); err != nil {
				s.logger.Warn("failed to cache overview", zap.Error(err))
			}
		}
	}
	return overview, nil
}

// RecentEvents 最近事件，监控大屏侧栏用
func (s *DashboardService) RecentEvents(ctx context.Context, limit int) ([]*domain.EventLog, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	logs, _, err := s.events.ListEventLogs(ctx, repository.EventLogFilters{}, 1, limit)
	return logs, err
}
