package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
)

// ZoneService 分区树服务
type ZoneService struct {
	zones     repository.ZonesRepository
	detectors repository.DetectorsRepository
	circuits  repository.NacCircuitsRepository
	logger    *zap.Logger
}

// NewZoneService 创建分区树服务
func NewZoneService(
	zones repository.ZonesRepository,
	detectors repository.DetectorsRepository,
	circuits repository.NacCircuitsRepository,
	logger *zap.Logger,
) *ZoneService {
	return &ZoneService{
		zones:     zones,
		detectors: detectors,
		circuits:  circuits,
		logger:    logger,
	}
}

// CreateZoneRequest 创建分区请求
type CreateZoneRequest struct {
	ZoneName    string  `json:"zone_name"`
	ParentID    *string `json:"parent_id"`
	Description *string `json:"description"`
}

// CreateZone 创建分区
func (s *ZoneService) CreateZone(ctx context.Context, req *CreateZoneRequest) (*domain.Zone, error) {
	if strings.TrimSpace(req.ZoneName) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "zone_name is required")
	}

	zone := &domain.Zone{ZoneName: strings.TrimSpace(req.ZoneName)}
	if req.ParentID != nil && *req.ParentID != "" {
		if err := ValidateID(*req.ParentID, "parent_id"); err != nil {
			return nil, err
		}
		if _, err := s.zones.GetZone(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		zone.ParentID = nullStr(*req.ParentID)
	}
	if req.Description != nil {
		zone.Description = nullStr(*req.Description)
	}

	if err := s.zones.CreateZone(ctx, zone); err != nil {
		return nil, err
	}
	s.logger.Info("zone created", zap.String("zone_id", zone.ZoneID), zap.String("zone_name", zone.ZoneName))
	return zone, nil
}

// UpdateZoneRequest 更新分区请求
// ParentID 指向空字符串表示挂到根
type UpdateZoneRequest struct {
	ZoneID      string
	ZoneName    *string `json:"zone_name"`
	ParentID    *string `json:"parent_id"`
	Description *string `json:"description"`
}

// UpdateZone 更新分区；换父节点时拒绝自挂与成环
func (s *ZoneService) UpdateZone(ctx context.Context, req *UpdateZoneRequest) (*domain.Zone, error) {
	if err := ValidateID(req.ZoneID, "zone_id"); err != nil {
		return nil, err
	}
	if _, err := s.zones.GetZone(ctx, req.ZoneID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.ZoneName != nil {
		if strings.TrimSpace(*req.ZoneName) == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "zone_name must not be empty")
		}
		updates["zone_name"] = strings.TrimSpace(*req.ZoneName)
	}
	if req.Description != nil {
		updates["description"] = nullStr(*req.Description)
	}
	if req.ParentID != nil {
		if *req.ParentID == "" {
			updates["parent_id"] = nil
		} else {
			if err := ValidateID(*req.ParentID, "parent_id"); err != nil {
				return nil, err
			}
			if *req.ParentID == req.ZoneID {
				return nil, apperr.New(apperr.KindInvalidArgument, "zone cannot be its own parent")
			}
			if _, err := s.zones.GetZone(ctx, *req.ParentID); err != nil {
				return nil, err
			}
			cycle, err := s.wouldCreateCycle(ctx, req.ZoneID, *req.ParentID)
			if err != nil {
				return nil, err
			}
			if cycle {
				return nil, apperr.Newf(apperr.KindInvalidArgument,
					"re-parenting zone %s under %s would create a cycle", req.ZoneID, *req.ParentID)
			}
			updates["parent_id"] = *req.ParentID
		}
	}

	if len(updates) > 0 {
		if err := s.zones.UpdateZone(ctx, req.ZoneID, updates); err != nil {
			return nil, err
		}
	}
	return s.zones.GetZone(ctx, req.ZoneID)
}

// wouldCreateCycle 判断把 zoneID 挂到 newParentID 下是否成环
// 从新父节点沿祖先链上溯；visited 集合兜底存量脏数据里的环
func (s *ZoneService) wouldCreateCycle(ctx context.Context, zoneID, newParentID string) (bool, error) {
	visited := make(map[string]bool)
	current := newParentID
	for current != "" {
		if current == zoneID {
			return true, nil
		}
		if visited[current] {
			return true, nil
		}
		visited[current] = true

		ancestor, err := s.zones.GetZone(ctx, current)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return false, nil
			}
			return false, err
		}
		if !ancestor.ParentID.Valid {
			return false, nil
		}
		current = ancestor.ParentID.String
	}
	return false, nil
}

// GetZone 查询单个分区
func (s *ZoneService) GetZone(ctx context.Context, zoneID string) (*domain.Zone, error) {
	if err := ValidateID(zoneID, "zone_id"); err != nil {
		return nil, err
	}
	return s.zones.GetZone(ctx, zoneID)
}

// ListZones 查询全部分区
func (s *ZoneService) ListZones(ctx context.Context) ([]*domain.Zone, error) {
	return s.zones.ListZones(ctx)
}

// ListChildren 查询直接子分区
func (s *ZoneService) ListChildren(ctx context.Context, zoneID string) ([]*domain.Zone, error) {
	if err := ValidateID(zoneID, "zone_id"); err != nil {
		return nil, err
	}
	if _, err := s.zones.GetZone(ctx, zoneID); err != nil {
		return nil, err
	}
	return s.zones.ListChildren(ctx, zoneID)
}

// DeleteZone 删除分区
// 仍有子分区或挂接设备时拒绝，错误信息给出各类数量
func (s *ZoneService) DeleteZone(ctx context.Context, zoneID string) error {
	if err := ValidateID(zoneID, "zone_id"); err != nil {
		return err
	}
	zone, err := s.zones.GetZone(ctx, zoneID)
	if err != nil {
		return err
	}

	children, err := s.zones.CountChildren(ctx, zoneID)
	if err != nil {
		return err
	}
	detectors, err := s.detectors.CountByZone(ctx, zoneID)
	if err != nil {
		return err
	}
	circuits, err := s.circuits.CountByZone(ctx, zoneID)
	if err != nil {
		return err
	}
	if children > 0 || detectors > 0 || circuits > 0 {
		var parts []string
		if children > 0 {
			parts = append(parts, fmt.Sprintf("%d child zones", children))
		}
		if detectors > 0 {
			parts = append(parts, fmt.Sprintf("%d detectors", detectors))
		}
		if circuits > 0 {
			parts = append(parts, fmt.Sprintf("%d nac circuits", circuits))
		}
		return apperr.Newf(apperr.KindDependencyExists,
			"cannot delete zone %q: %s still linked", zone.ZoneName, strings.Join(parts, ", "))
	}

	if err := s.zones.DeleteZone(ctx, zoneID); err != nil {
		return err
	}
	s.logger.Info("zone deleted", zap.String("zone_id", zoneID), zap.String("zone_name", zone.ZoneName))
	return nil
}
