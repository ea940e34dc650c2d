package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
)

// DetectorService 探测器服务
type DetectorService struct {
	falcBoards repository.FalcBoardsRepository
	zones      repository.ZonesRepository
	detectors  repository.DetectorsRepository
	events     *EventLogService
	logger     *zap.Logger
}

// NewDetectorService 创建探测器服务
func NewDetectorService(
	falcBoards repository.FalcBoardsRepository,
	zones repository.ZonesRepository,
	detectors repository.DetectorsRepository,
	events *EventLogService,
	logger *zap.Logger,
) *DetectorService {
	return &DetectorService{
		falcBoards: falcBoards,
		zones:      zones,
		detectors:  detectors,
		events:     events,
		logger:     logger,
	}
}

// CreateDetectorRequest 创建探测器请求
type CreateDetectorRequest struct {
	FalcBoardID     string  `json:"falc_board_id"`
	ZoneID          *string `json:"zone_id"`
	DetectorAddress int     `json:"detector_address"`
	DetectorName    *string `json:"detector_name"`
	DetectorType    string  `json:"detector_type"`
}

// CreateDetector 创建探测器
// 回路板容量满时拒绝；容量判断与插入在仓储层同一语句内完成，
// 这里的预检只为给出更友好的错误
func (s *DetectorService) CreateDetector(ctx context.Context, req *CreateDetectorRequest) (*domain.Detector, error) {
	if err := ValidateID(req.FalcBoardID, "falc_board_id"); err != nil {
		return nil, err
	}
	if req.DetectorAddress < 1 {
		return nil, apperr.New(apperr.KindInvalidArgument, "detector_address must be at least 1")
	}
	if !domain.ValidDetectorType(req.DetectorType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument,
			"invalid detector_type %q: allowed values are smoke, heat, gas", req.DetectorType)
	}

	board, err := s.falcBoards.GetBoard(ctx, req.FalcBoardID)
	if err != nil {
		return nil, err
	}
	capacityErr := apperr.Newf(apperr.KindInvalidArgument,
		"falc board %q allows at most %d detectors", board.BoardName, board.NumberOfDetectors)

	attached, err := s.detectors.CountByBoard(ctx, req.FalcBoardID)
	if err != nil {
		return nil, err
	}
	if attached >= board.NumberOfDetectors {
		return nil, capacityErr
	}

	detector := &domain.Detector{
		FalcBoardID:     req.FalcBoardID,
		DetectorAddress: req.DetectorAddress,
		DetectorType:    req.DetectorType,
		Status:          domain.DetectorStatusNormal,
		IsActive:        true,
	}
	if req.DetectorName != nil {
		detector.DetectorName = strings.TrimSpace(*req.DetectorName)
	}
	if req.ZoneID != nil && *req.ZoneID != "" {
		if err := ValidateID(*req.ZoneID, "zone_id"); err != nil {
			return nil, err
		}
		if _, err := s.zones.GetZone(ctx, *req.ZoneID); err != nil {
			return nil, err
		}
		detector.ZoneID = nullStr(*req.ZoneID)
	}

	if err := s.detectors.CreateDetector(ctx, detector, board.NumberOfDetectors); err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			return nil, capacityErr
		}
		return nil, err
	}

	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypeDetector, detector.DetectorID,
		fmt.Sprintf("Detector %s (address %d, %s) added to board %q",
			detector.DisplayName(), detector.DetectorAddress, detector.DetectorType, board.BoardName)))
	s.logger.Info("detector created",
		zap.String("detector_id", detector.DetectorID),
		zap.String("falc_board_id", req.FalcBoardID),
		zap.Int("detector_address", req.DetectorAddress))
	return detector, nil
}

// UpdateDetectorRequest 更新探测器请求
// 状态字段不经此入口，由状态引擎统一变更
type UpdateDetectorRequest struct {
	DetectorID      string
	ZoneID          *string `json:"zone_id"`
	DetectorAddress *int    `json:"detector_address"`
	DetectorName    *string `json:"detector_name"`
	DetectorType    *string `json:"detector_type"`
	IsActive        *bool   `json:"is_active"`
}

// UpdateDetector 更新探测器配置
func (s *DetectorService) UpdateDetector(ctx context.Context, req *UpdateDetectorRequest) (*domain.Detector, error) {
	if err := ValidateID(req.DetectorID, "detector_id"); err != nil {
		return nil, err
	}
	if _, err := s.detectors.GetDetector(ctx, req.DetectorID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.DetectorAddress != nil {
		if *req.DetectorAddress < 1 {
			return nil, apperr.New(apperr.KindInvalidArgument, "detector_address must be at least 1")
		}
		updates["detector_address"] = *req.DetectorAddress
	}
	if req.DetectorName != nil {
		updates["detector_name"] = strings.TrimSpace(*req.DetectorName)
	}
	if req.DetectorType != nil {
		if !domain.ValidDetectorType(*req.DetectorType) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid detector_type %q: allowed values are smoke, heat, gas", *req.DetectorType)
		}
		updates["detector_type"] = *req.DetectorType
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.ZoneID != nil {
		if *req.ZoneID == "" {
			updates["zone_id"] = nil
		} else {
			if err := ValidateID(*req.ZoneID, "zone_id"); err != nil {
				return nil, err
			}
			if _, err := s.zones.GetZone(ctx, *req.ZoneID); err != nil {
				return nil, err
			}
			updates["zone_id"] = *req.ZoneID
		}
	}

	if len(updates) > 0 {
		if err := s.detectors.UpdateDetector(ctx, req.DetectorID, updates); err != nil {
			return nil, err
		}
	}
	return s.detectors.GetDetector(ctx, req.DetectorID)
}

// GetDetector 查询单个探测器
func (s *DetectorService) GetDetector(ctx context.Context, detectorID string) (*domain.Detector, error) {
	if err := ValidateID(detectorID, "detector_id"); err != nil {
		return nil, err
	}
	return s.detectors.GetDetector(ctx, detectorID)
}

// ListDetectorsResponse 探测器分页查询响应
type ListDetectorsResponse struct {
	Detectors []*domain.Detector `json:"detectors"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Size      int                `json:"size"`
}

// ListDetectors 按条件分页查询探测器
func (s *DetectorService) ListDetectors(ctx context.Context, filters repository.DetectorFilters, page, size int) (*ListDetectorsResponse, error) {
	if filters.FalcBoardID != "" {
		if err := ValidateID(filters.FalcBoardID, "falc_board_id"); err != nil {
			return nil, err
		}
	}
	if filters.ZoneID != "" {
		if err := ValidateID(filters.ZoneID, "zone_id"); err != nil {
			return nil, err
		}
	}
	if filters.Status != "" && !domain.ValidDetectorStatus(filters.Status) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid status: %s", filters.Status)
	}
	if filters.DetectorType != "" && !domain.ValidDetectorType(filters.DetectorType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid detector_type: %s", filters.DetectorType)
	}
	page, size = normalizePage(page, size)
	detectors, total, err := s.detectors.ListDetectors(ctx, filters, page, size)
	if err != nil {
		return nil, err
	}
	return &ListDetectorsResponse{Detectors: detectors, Total: total, Page: page, Size: size}, nil
}

// DeleteDetector 删除探测器
func (s *DetectorService) DeleteDetector(ctx context.Context, detectorID string) error {
	if err := ValidateID(detectorID, "detector_id"); err != nil {
		return err
	}
	detector, err := s.detectors.GetDetector(ctx, detectorID)
	if err != nil {
		return err
	}
	if err := s.detectors.DeleteDetector(ctx, detectorID); err != nil {
		return err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypeDetector, detectorID,
		fmt.Sprintf("Detector %s (address %d) deleted", detector.DisplayName(), detector.DetectorAddress)))
	s.logger.Info("detector deleted",
		zap.String("detector_id", detectorID),
		zap.Int("detector_address", detector.DetectorAddress))
	return nil
}
