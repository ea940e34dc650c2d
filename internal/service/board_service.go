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

// BoardService 回路板服务：探测回路板（FALC）与声光输出板（NAC）
type BoardService struct {
	panels     repository.PanelsRepository
	falcBoards repository.FalcBoardsRepository
	nacBoards  repository.NacBoardsRepository
	detectors  repository.DetectorsRepository
	circuits   repository.NacCircuitsRepository
	events     *EventLogService
	logger     *zap.Logger
}

// NewBoardService 创建回路板服务
func NewBoardService(
	panels repository.PanelsRepository,
	falcBoards repository.FalcBoardsRepository,
	nacBoards repository.NacBoardsRepository,
	detectors repository.DetectorsRepository,
	circuits repository.NacCircuitsRepository,
	events *EventLogService,
	logger *zap.Logger,
) *BoardService {
	return &BoardService{
		panels:     panels,
		falcBoards: falcBoards,
		nacBoards:  nacBoards,
		detectors:  detectors,
		circuits:   circuits,
		events:     events,
		logger:     logger,
	}
}

// CreateFalcBoardRequest 创建探测回路板请求
type CreateFalcBoardRequest struct {
	PanelID           string  `json:"panel_id"`
	BoardName         string  `json:"board_name"`
	Description       *string `json:"description"`
	IsActive          *bool   `json:"is_active"`
	NumberOfDetectors int     `json:"number_of_detectors"`
}

// CreateFalcBoard 创建探测回路板
func (s *BoardService) CreateFalcBoard(ctx context.Context, req *CreateFalcBoardRequest) (*domain.FalcBoard, error) {
	if err := ValidateID(req.PanelID, "panel_id"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.BoardName) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "board_name is required")
	}
	if req.NumberOfDetectors < domain.MinDetectorsPerBoard || req.NumberOfDetectors > domain.MaxDetectorsPerBoard {
		return nil, apperr.Newf(apperr.KindInvalidArgument,
			"number_of_detectors must be between %d and %d",
			domain.MinDetectorsPerBoard, domain.MaxDetectorsPerBoard)
	}
	panel, err := s.panels.GetPanel(ctx, req.PanelID)
	if err != nil {
		return nil, err
	}

	board := &domain.FalcBoard{
		PanelID:           req.PanelID,
		BoardName:         strings.TrimSpace(req.BoardName),
		IsActive:          true,
		Status:            domain.BoardStatusNormal,
		NumberOfDetectors: req.NumberOfDetectors,
	}
	if req.Description != nil {
		board.Description = nullStr(*req.Description)
	}
	if req.IsActive != nil && !*req.IsActive {
		board.IsActive = false
		board.Status = domain.BoardStatusOffline
	}

	if err := s.falcBoards.CreateBoard(ctx, board); err != nil {
		return nil, err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, req.PanelID,
		fmt.Sprintf("FALC board %q added to panel %q", board.BoardName, panel.PanelName)))
	s.logger.Info("falc board created",
		zap.String("board_id", board.BoardID),
		zap.String("panel_id", req.PanelID),
		zap.String("board_name", board.BoardName))
	return board, nil
}

// UpdateFalcBoardRequest 更新探测回路板请求
type UpdateFalcBoardRequest struct {
	BoardID           string
	BoardName         *string `json:"board_name"`
	Description       *string `json:"description"`
	Status            *string `json:"status"`
	NumberOfDetectors *int    `json:"number_of_detectors"`
}

// UpdateFalcBoard 更新探测回路板
// 容量下调不能低于已接入的探测器数
func (s *BoardService) UpdateFalcBoard(ctx context.Context, req *UpdateFalcBoardRequest) (*domain.FalcBoard, error) {
	if err := ValidateID(req.BoardID, "falc_board_id"); err != nil {
		return nil, err
	}
	if _, err := s.falcBoards.GetBoard(ctx, req.BoardID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.BoardName != nil {
		if strings.TrimSpace(*req.BoardName) == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "board_name must not be empty")
		}
		updates["board_name"] = strings.TrimSpace(*req.BoardName)
	}
	if req.Description != nil {
		updates["description"] = nullStr(*req.Description)
	}
	if req.Status != nil {
		if !domain.ValidBoardStatus(*req.Status) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid status %q: allowed values are normal, fault, offline", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.NumberOfDetectors != nil {
		if *req.NumberOfDetectors < domain.MinDetectorsPerBoard || *req.NumberOfDetectors > domain.MaxDetectorsPerBoard {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"number_of_detectors must be between %d and %d",
				domain.MinDetectorsPerBoard, domain.MaxDetectorsPerBoard)
		}
		attached, err := s.detectors.CountByBoard(ctx, req.BoardID)
		if err != nil {
			return nil, err
		}
		if *req.NumberOfDetectors < attached {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"number_of_detectors %d is below the %d detectors already attached",
				*req.NumberOfDetectors, attached)
		}
		updates["number_of_detectors"] = *req.NumberOfDetectors
	}

	if len(updates) > 0 {
		if err := s.falcBoards.UpdateBoard(ctx, req.BoardID, updates); err != nil {
			return nil, err
		}
	}
	return s.falcBoards.GetBoard(ctx, req.BoardID)
}

// SetFalcBoardActive 启停探测回路板
// 停用时状态联动为 offline（fault 保留），启用时恢复 normal
func (s *BoardService) SetFalcBoardActive(ctx context.Context, boardID string, active bool) (*domain.FalcBoard, error) {
	if err := ValidateID(boardID, "falc_board_id"); err != nil {
		return nil, err
	}
	board, err := s.falcBoards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.IsActive == active {
		return board, nil
	}

	status := domain.BoardStatusNormal
	if !active {
		status = domain.BoardStatusOffline
		if board.Status == domain.BoardStatusFault {
			status = domain.BoardStatusFault
		}
	}
	updates := map[string]interface{}{
		"is_active": active,
		"status":    status,
	}
	if err := s.falcBoards.UpdateBoard(ctx, boardID, updates); err != nil {
		return nil, err
	}

	action := "disabled"
	if active {
		action = "enabled"
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, board.PanelID,
		fmt.Sprintf("FALC board %q %s", board.BoardName, action)))

	board.IsActive = active
	board.Status = status
	return board, nil
}

// GetFalcBoard 查询单个探测回路板
func (s *BoardService) GetFalcBoard(ctx context.Context, boardID string) (*domain.FalcBoard, error) {
	if err := ValidateID(boardID, "falc_board_id"); err != nil {
		return nil, err
	}
	return s.falcBoards.GetBoard(ctx, boardID)
}

// ListFalcBoards 查询控制盘下的探测回路板
func (s *BoardService) ListFalcBoards(ctx context.Context, panelID string) ([]*domain.FalcBoard, error) {
	if err := ValidateID(panelID, "panel_id"); err != nil {
		return nil, err
	}
	if _, err := s.panels.GetPanel(ctx, panelID); err != nil {
		return nil, err
	}
	return s.falcBoards.ListByPanel(ctx, panelID)
}

// DeleteFalcBoard 删除探测回路板；仍挂有探测器时拒绝
func (s *BoardService) DeleteFalcBoard(ctx context.Context, boardID string) error {
	if err := ValidateID(boardID, "falc_board_id"); err != nil {
		return err
	}
	board, err := s.falcBoards.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	attached, err := s.detectors.CountByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if attached > 0 {
		return apperr.Newf(apperr.KindDependencyExists,
			"cannot delete falc board %q: %d detectors still linked", board.BoardName, attached)
	}
	if err := s.falcBoards.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, board.PanelID,
		fmt.Sprintf("FALC board %q deleted", board.BoardName)))
	s.logger.Info("falc board deleted", zap.String("board_id", boardID), zap.String("board_name", board.BoardName))
	return nil
}

// CreateNacBoardRequest 创建声光输出板请求
type CreateNacBoardRequest struct {
	PanelID      string  `json:"panel_id"`
	BoardName    string  `json:"board_name"`
	Description  *string `json:"description"`
	IsActive     *bool   `json:"is_active"`
	CircuitCount int     `json:"circuit_count"`
}

// CreateNacBoard 创建声光输出板
func (s *BoardService) CreateNacBoard(ctx context.Context, req *CreateNacBoardRequest) (*domain.NacBoard, error) {
	if err := ValidateID(req.PanelID, "panel_id"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.BoardName) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "board_name is required")
	}
	if req.CircuitCount < 1 {
		return nil, apperr.New(apperr.KindInvalidArgument, "circuit_count must be at least 1")
	}
	panel, err := s.panels.GetPanel(ctx, req.PanelID)
	if err != nil {
		return nil, err
	}

	board := &domain.NacBoard{
		PanelID:      req.PanelID,
		BoardName:    strings.TrimSpace(req.BoardName),
		IsActive:     true,
		Status:       domain.BoardStatusNormal,
		CircuitCount: req.CircuitCount,
	}
	if req.Description != nil {
		board.Description = nullStr(*req.Description)
	}
	if req.IsActive != nil && !*req.IsActive {
		board.IsActive = false
		board.Status = domain.BoardStatusOffline
	}

	if err := s.nacBoards.CreateBoard(ctx, board); err != nil {
		return nil, err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, req.PanelID,
		fmt.Sprintf("NAC board %q added to panel %q", board.BoardName, panel.PanelName)))
	s.logger.Info("nac board created",
		zap.String("board_id", board.BoardID),
		zap.String("panel_id", req.PanelID),
		zap.String("board_name", board.BoardName))
	return board, nil
}

// UpdateNacBoardRequest 更新声光输出板请求
type UpdateNacBoardRequest struct {
	BoardID      string
	BoardName    *string `json:"board_name"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	CircuitCount *int    `json:"circuit_count"`
}

// UpdateNacBoard 更新声光输出板
func (s *BoardService) UpdateNacBoard(ctx context.Context, req *UpdateNacBoardRequest) (*domain.NacBoard, error) {
	if err := ValidateID(req.BoardID, "nac_board_id"); err != nil {
		return nil, err
	}
	if _, err := s.nacBoards.GetBoard(ctx, req.BoardID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.BoardName != nil {
		if strings.TrimSpace(*req.BoardName) == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "board_name must not be empty")
		}
		updates["board_name"] = strings.TrimSpace(*req.BoardName)
	}
	if req.Description != nil {
		updates["description"] = nullStr(*req.Description)
	}
	if req.Status != nil {
		if !domain.ValidBoardStatus(*req.Status) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid status %q: allowed values are normal, fault, offline", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.CircuitCount != nil {
		if *req.CircuitCount < 1 {
			return nil, apperr.New(apperr.KindInvalidArgument, "circuit_count must be at least 1")
		}
		attached, err := s.circuits.CountByBoard(ctx, req.BoardID)
		if err != nil {
			return nil, err
		}
		if *req.CircuitCount < attached {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"circuit_count %d is below the %d circuits already attached", *req.CircuitCount, attached)
		}
		updates["circuit_count"] = *req.CircuitCount
	}

	if len(updates) > 0 {
		if err := s.nacBoards.UpdateBoard(ctx, req.BoardID, updates); err != nil {
			return nil, err
		}
	}
	return s.nacBoards.GetBoard(ctx, req.BoardID)
}

// SetNacBoardActive 启停声光输出板，状态联动规则与探测回路板一致
func (s *BoardService) SetNacBoardActive(ctx context.Context, boardID string, active bool) (*domain.NacBoard, error) {
	if err := ValidateID(boardID, "nac_board_id"); err != nil {
		return nil, err
	}
	board, err := s.nacBoards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.IsActive == active {
		return board, nil
	}

	status := domain.BoardStatusNormal
	if !active {
		status = domain.BoardStatusOffline
		if board.Status == domain.BoardStatusFault {
			status = domain.BoardStatusFault
		}
	}
	updates := map[string]interface{}{
		"is_active": active,
		"status":    status,
	}
	if err := s.nacBoards.UpdateBoard(ctx, boardID, updates); err != nil {
		return nil, err
	}

	action := "disabled"
	if active {
		action = "enabled"
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, board.PanelID,
		fmt.Sprintf("NAC board %q %s", board.BoardName, action)))

	board.IsActive = active
	board.Status = status
	return board, nil
}

// GetNacBoard 查询单个声光输出板
func (s *BoardService) GetNacBoard(ctx context.Context, boardID string) (*domain.NacBoard, error) {
	if err := ValidateID(boardID, "nac_board_id"); err != nil {
		return nil, err
	}
	return s.nacBoards.GetBoard(ctx, boardID)
}

// ListNacBoards 查询控制盘下的声光输出板
func (s *BoardService) ListNacBoards(ctx context.Context, panelID string) ([]*domain.NacBoard, error) {
	if err := ValidateID(panelID, "panel_id"); err != nil {
		return nil, err
	}
	if _, err := s.panels.GetPanel(ctx, panelID); err != nil {
		return nil, err
	}
	return s.nacBoards.ListByPanel(ctx, panelID)
}

// DeleteNacBoard 删除声光输出板；仍挂有输出回路时拒绝
func (s *BoardService) DeleteNacBoard(ctx context.Context, boardID string) error {
	if err := ValidateID(boardID, "nac_board_id"); err != nil {
		return err
	}
	board, err := s.nacBoards.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	attached, err := s.circuits.CountByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if attached > 0 {
		return apperr.Newf(apperr.KindDependencyExists,
			"cannot delete nac board %q: %d circuits still linked", board.BoardName, attached)
	}
	if err := s.nacBoards.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, board.PanelID,
		fmt.Sprintf("NAC board %q deleted", board.BoardName)))
	s.logger.Info("nac board deleted", zap.String("board_id", boardID), zap.String("board_name", board.BoardName))
	return nil
}
