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

// CircuitService 声光输出回路服务
type CircuitService struct {
	nacBoards repository.NacBoardsRepository
	zones     repository.ZonesRepository
	circuits  repository.NacCircuitsRepository
	events    *EventLogService
	logger    *zap.Logger
}

// NewCircuitService 创建输出回路服务
func NewCircuitService(
	nacBoards repository.NacBoardsRepository,
	zones repository.ZonesRepository,
	circuits repository.NacCircuitsRepository,
	events *EventLogService,
	logger *zap.Logger,
) *CircuitService {
	return &CircuitService{
		nacBoards: nacBoards,
		zones:     zones,
		circuits:  circuits,
		events:    events,
		logger:    logger,
	}
}

// CreateCircuitRequest 创建输出回路请求
type CreateCircuitRequest struct {
	NacBoardID    string  `json:"nac_board_id"`
	ZoneID        *string `json:"zone_id"`
	CircuitName   string  `json:"circuit_name"`
	CircuitNumber int     `json:"circuit_number"`
	OutputType    string  `json:"output_type"`
}

// CreateCircuit 创建输出回路；回路号必须落在所属板的 1..circuit_count 内
func (s *CircuitService) CreateCircuit(ctx context.Context, req *CreateCircuitRequest) (*domain.NacCircuit, error) {
	if err := ValidateID(req.NacBoardID, "nac_board_id"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CircuitName) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "circuit_name is required")
	}
	if !domain.ValidOutputType(req.OutputType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument,
			"invalid output_type %q: allowed values are audible, visual, relay, other", req.OutputType)
	}

	board, err := s.nacBoards.GetBoard(ctx, req.NacBoardID)
	if err != nil {
		return nil, err
	}
	if req.CircuitNumber < 1 || req.CircuitNumber > board.CircuitCount {
		return nil, apperr.Newf(apperr.KindInvalidArgument,
			"circuit_number must be between 1 and %d for board %q", board.CircuitCount, board.BoardName)
	}

	circuit := &domain.NacCircuit{
		NacBoardID:    req.NacBoardID,
		CircuitName:   strings.TrimSpace(req.CircuitName),
		CircuitNumber: req.CircuitNumber,
		IsActive:      true,
		Status:        domain.CircuitStatusNormal,
		OutputType:    req.OutputType,
	}
	if req.ZoneID != nil && *req.ZoneID != "" {
		if err := ValidateID(*req.ZoneID, "zone_id"); err != nil {
			return nil, err
		}
		if _, err := s.zones.GetZone(ctx, *req.ZoneID); err != nil {
			return nil, err
		}
		circuit.ZoneID = nullStr(*req.ZoneID)
	}

	if err := s.circuits.CreateCircuit(ctx, circuit); err != nil {
		return nil, err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypeNAC, circuit.CircuitID,
		fmt.Sprintf("Circuit %q (#%d, %s) added to board %q",
			circuit.CircuitName, circuit.CircuitNumber, circuit.OutputType, board.BoardName)))
	s.logger.Info("nac circuit created",
		zap.String("circuit_id", circuit.CircuitID),
		zap.String("nac_board_id", req.NacBoardID),
		zap.Int("circuit_number", req.CircuitNumber))
	return circuit, nil
}

// UpdateCircuitRequest 更新输出回路请求
type UpdateCircuitRequest struct {
	CircuitID     string
	ZoneID        *string `json:"zone_id"`
	CircuitName   *string `json:"circuit_name"`
	CircuitNumber *int    `json:"circuit_number"`
	OutputType    *string `json:"output_type"`
}

// UpdateCircuit 更新输出回路配置；启停走状态引擎
func (s *CircuitService) UpdateCircuit(ctx context.Context, req *UpdateCircuitRequest) (*domain.NacCircuit, error) {
	if err := ValidateID(req.CircuitID, "circuit_id"); err != nil {
		return nil, err
	}
	circuit, err := s.circuits.GetCircuit(ctx, req.CircuitID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.CircuitName != nil {
		if strings.TrimSpace(*req.CircuitName) == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "circuit_name must not be empty")
		}
		updates["circuit_name"] = strings.TrimSpace(*req.CircuitName)
	}
	if req.OutputType != nil {
		if !domain.ValidOutputType(*req.OutputType) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid output_type %q: allowed values are audible, visual, relay, other", *req.OutputType)
		}
		updates["output_type"] = *req.OutputType
	}
	if req.CircuitNumber != nil {
		board, err := s.nacBoards.GetBoard(ctx, circuit.NacBoardID)
		if err != nil {
			return nil, err
		}
		if *req.CircuitNumber < 1 || *req.CircuitNumber > board.CircuitCount {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"circuit_number must be between 1 and %d for board %q", board.CircuitCount, board.BoardName)
		}
		updates["circuit_number"] = *req.CircuitNumber
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
		if err := s.circuits.UpdateCircuit(ctx, req.CircuitID, updates); err != nil {
			return nil, err
		}
	}
	return s.circuits.GetCircuit(ctx, req.CircuitID)
}

// GetCircuit 查询单个输出回路
func (s *CircuitService) GetCircuit(ctx context.Context, circuitID string) (*domain.NacCircuit, error) {
	if err := ValidateID(circuitID, "circuit_id"); err != nil {
		return nil, err
	}
	return s.circuits.GetCircuit(ctx, circuitID)
}

// ListCircuitsResponse 输出回路分页查询响应
type ListCircuitsResponse struct {
	Circuits []*domain.NacCircuit `json:"circuits"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	Size     int                  `json:"size"`
}

// ListCircuits 按条件分页查询输出回路
func (s *CircuitService) ListCircuits(ctx context.Context, filters repository.CircuitFilters, page, size int) (*ListCircuitsResponse, error) {
	if filters.NacBoardID != "" {
		if err := ValidateID(filters.NacBoardID, "nac_board_id"); err != nil {
			return nil, err
		}
	}
	if filters.ZoneID != "" {
		if err := ValidateID(filters.ZoneID, "zone_id"); err != nil {
			return nil, err
		}
	}
	if filters.Status != "" && !domain.ValidCircuitStatus(filters.Status) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid status: %s", filters.Status)
	}
	page, size = normalizePage(page, size)
	circuits, total, err := s.circuits.ListCircuits(ctx, filters, page, size)
	if err != nil {
		return nil, err
	}
	return &ListCircuitsResponse{Circuits: circuits, Total: total, Page: page, Size: size}, nil
}

// DeleteCircuit 删除输出回路
func (s *CircuitService) DeleteCircuit(ctx context.Context, circuitID string) error {
	if err := ValidateID(circuitID, "circuit_id"); err != nil {
		return err
	}
	circuit, err := s.circuits.GetCircuit(ctx, circuitID)
	if err != nil {
		return err
	}
	if err := s.circuits.DeleteCircuit(ctx, circuitID); err != nil {
		return err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypeNAC, circuitID,
		fmt.Sprintf("Circuit %q (#%d) deleted", circuit.CircuitName, circuit.CircuitNumber)))
	s.logger.Info("nac circuit deleted",
		zap.String("circuit_id", circuitID),
		zap.Int("circuit_number", circuit.CircuitNumber))
	return nil
}
