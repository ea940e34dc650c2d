package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
)

// notifyTimeout 单次对外通知的最长耗时
const notifyTimeout = 10 * time.Second

// EventLogService 事件日志服务：追加、查询、确认
type EventLogService struct {
	events    repository.EventLogsRepository
	detectors repository.DetectorsRepository
	notifiers []Notifier
	logger    *zap.Logger
}

// NewEventLogService 创建事件日志服务
func NewEventLogService(
	events repository.EventLogsRepository,
	detectors repository.DetectorsRepository,
	notifiers []Notifier,
	logger *zap.Logger,
) *EventLogService {
	return &EventLogService{
		events:    events,
		detectors: detectors,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Append 追加一条事件日志
// 日志是监测的副产品：写入失败只记录，不向调用方传播，
// 以免事件落库问题阻断设备状态上报主流程
func (s *EventLogService) Append(ctx context.Context, event *domain.EventLog) {
	if err := s.events.CreateEventLog(ctx, event); err != nil {
		s.logger.Error("failed to append event log",
			zap.String("event_type", event.EventType),
			zap.String("source_type", event.SourceType),
			zap.String("source_id", event.SourceID),
			zap.Error(err))
		return
	}

	if event.Status == domain.EventStatusActive &&
		(event.EventType == domain.EventTypeFireAlarm || event.EventType == domain.EventTypeFault) {
		s.dispatch(event)
	}
}

// dispatch 异步推送报警/故障事件到所有通知通道
func (s *EventLogService) dispatch(event *domain.EventLog) {
	for _, n := range s.notifiers {
		go func(n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := n.NotifyEvent(ctx, event); err != nil {
				s.logger.Warn("failed to notify event",
					zap.String("channel", n.Name()),
					zap.String("event_id", event.EventID),
					zap.Error(err))
			}
		}(n)
	}
}

// ListEventLogsRequest 查询事件日志请求
type ListEventLogsRequest struct {
	EventType  string
	ZoneID     string
	PanelID    string
	SourceType string
	Status     string
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD，含当天整天
	Page       int
	Size       int
	SortAsc    bool
}

// ListEventLogsResponse 查询事件日志响应
type ListEventLogsResponse struct {
	EventLogs []*domain.EventLog `json:"event_logs"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Size      int                `json:"size"`
}

// List 按条件分页查询事件日志
func (s *EventLogService) List(ctx context.Context, req *ListEventLogsRequest) (*ListEventLogsResponse, error) {
	if req.EventType != "" && !domain.ValidEventType(req.EventType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid event_type: %s", req.EventType)
	}
	if req.SourceType != "" && !domain.ValidSourceType(req.SourceType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid source_type: %s", req.SourceType)
	}
	if req.Status != "" && !domain.ValidEventStatus(req.Status) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid status: %s", req.Status)
	}
	if req.ZoneID != "" {
		if err := ValidateID(req.ZoneID, "zone_id"); err != nil {
			return nil, err
		}
	}
	if req.PanelID != "" {
		if err := ValidateID(req.PanelID, "panel_id"); err != nil {
			return nil, err
		}
	}

	filters := repository.EventLogFilters{
		EventType:  req.EventType,
		ZoneID:     req.ZoneID,
		PanelID:    req.PanelID,
		SourceType: req.SourceType,
		Status:     req.Status,
		SortAsc:    req.SortAsc,
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid start_date: %s", req.StartDate)
		}
		filters.StartTime = &start
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid end_date: %s", req.EndDate)
		}
		// 截止日期含当天整天
		endOfDay := end.Add(24*time.Hour - time.Nanosecond)
		filters.EndTime = &endOfDay
	}
	if filters.StartTime != nil && filters.EndTime != nil && filters.EndTime.Before(*filters.StartTime) {
		return nil, apperr.New(apperr.KindInvalidArgument, "end_date must not be before start_date")
	}

	page, size := normalizePage(req.Page, req.Size)
	logs, total, err := s.events.ListEventLogs(ctx, filters, page, size)
	if err != nil {
		return nil, err
	}
	return &ListEventLogsResponse{
		EventLogs: logs,
		Total:     total,
		Page:      page,
		Size:      size,
	}, nil
}

// Get 查询单条事件日志
func (s *EventLogService) Get(ctx context.Context, eventID string) (*domain.EventLog, error) {
	if err := ValidateID(eventID, "event_id"); err != nil {
		return nil, err
	}
	return s.events.GetEventLog(ctx, eventID)
}

// AcknowledgeEventLogRequest 确认事件请求
type AcknowledgeEventLogRequest struct {
	EventID        string
	AcknowledgedBy string
}

// Acknowledge 确认一条活动事件
// 事件转为 cleared，若来源是探测器则顺带把探测器复位（尽力而为）
func (s *EventLogService) Acknowledge(ctx context.Context, req *AcknowledgeEventLogRequest) (*domain.EventLog, error) {
	if err := ValidateID(req.EventID, "event_id"); err != nil {
		return nil, err
	}
	if req.AcknowledgedBy == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "acknowledged_by is required")
	}

	event, err := s.events.GetEventLog(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.EventStatusActive {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "event log is not active: %s", event.Status)
	}

	now := time.Now()
	if err := s.events.AcknowledgeEventLog(ctx, req.EventID, req.AcknowledgedBy, now); err != nil {
		return nil, err
	}

	// 探测器来源的事件确认后顺带复位设备；复位失败不影响确认结果
	if event.SourceType == domain.SourceTypeDetector {
		resetErr := s.detectors.UpdateDetector(ctx, event.SourceID, map[string]interface{}{
			"status":           domain.DetectorStatusNormal,
			"is_active":        true,
			"last_reported_at": now,
		})
		if resetErr != nil {
			s.logger.Warn("failed to reset detector after acknowledge",
				zap.String("event_id", req.EventID),
				zap.String("detector_id", event.SourceID),
				zap.Error(resetErr))
		}
	}

	s.logger.Info("event log acknowledged",
		zap.String("event_id", req.EventID),
		zap.String("acknowledged_by", req.AcknowledgedBy))

	event.Status = domain.EventStatusCleared
	event.AcknowledgedAt.Time = now
	event.AcknowledgedAt.Valid = true
	event.AcknowledgedBy.String = req.AcknowledgedBy
	event.AcknowledgedBy.Valid = true
	return event, nil
}
