package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
	"firewatch-data/internal/store"
)

// heartbeatTTL 控制盘心跳快照在 Redis 中的保留时长
const heartbeatTTL = 5 * time.Minute

// heartbeatKey 控制盘心跳快照的缓存键
func heartbeatKey(panelID string) string {
	return "panel:heartbeat:" + panelID
}

// PanelService 控制盘服务
type PanelService struct {
	panels     repository.PanelsRepository
	falcBoards repository.FalcBoardsRepository
	nacBoards  repository.NacBoardsRepository
	events     *EventLogService
	kv         store.KV // 可为 nil，缓存不可用时跳过
	logger     *zap.Logger
}

// NewPanelService 创建控制盘服务
func NewPanelService(
	panels repository.PanelsRepository,
	falcBoards repository.FalcBoardsRepository,
	nacBoards repository.NacBoardsRepository,
	events *EventLogService,
	kv store.KV,
	logger *zap.Logger,
) *PanelService {
	return &PanelService{
		panels:     panels,
		falcBoards: falcBoards,
		nacBoards:  nacBoards,
		events:     events,
		kv:         kv,
		logger:     logger,
	}
}

// CreatePanelRequest 创建控制盘请求
type CreatePanelRequest struct {
	PanelName      string  `json:"panel_name"`
	PanelType      string  `json:"panel_type"`
	Location       *string `json:"location"`
	IPAddress      *string `json:"ip_address"`
	SubnetMask     *string `json:"subnet_mask"`
	Gateway        *string `json:"gateway"`
	MainPanelID    *string `json:"main_panel_id"`
	MainPanelIP    *string `json:"main_panel_ip"`
	Status         *string `json:"status"`
	LoopsSupported *int    `json:"loops_supported"`
	RAMUsage       *int    `json:"ram_usage"`
	CPUUsage       *int    `json:"cpu_usage"`
}

// CreatePanel 创建控制盘
func (s *PanelService) CreatePanel(ctx context.Context, req *CreatePanelRequest) (*domain.Panel, error) {
	if strings.TrimSpace(req.PanelName) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "panel_name is required")
	}
	if !domain.ValidPanelType(req.PanelType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument,
			"invalid panel_type %q: allowed values are control, sub", req.PanelType)
	}

	panel := &domain.Panel{
		PanelName: strings.TrimSpace(req.PanelName),
		PanelType: req.PanelType,
		Status:    domain.PanelStatusOffline,
	}
	if req.Status != nil {
		if !domain.ValidPanelStatus(*req.Status) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid status %q: allowed values are online, offline, fault", *req.Status)
		}
		panel.Status = *req.Status
	}
	if req.Location != nil {
		panel.Location = nullStr(*req.Location)
	}
	if req.IPAddress != nil {
		panel.IPAddress = nullStr(*req.IPAddress)
	}
	if req.SubnetMask != nil {
		panel.SubnetMask = nullStr(*req.SubnetMask)
	}
	if req.Gateway != nil {
		panel.Gateway = nullStr(*req.Gateway)
	}
	if req.LoopsSupported != nil {
		if *req.LoopsSupported < 0 {
			return nil, apperr.New(apperr.KindInvalidArgument, "loops_supported must not be negative")
		}
		panel.LoopsSupported = *req.LoopsSupported
	}
	if err := applyUsage(req.RAMUsage, "ram_usage", &panel.RAMUsage); err != nil {
		return nil, err
	}
	if err := applyUsage(req.CPUUsage, "cpu_usage", &panel.CPUUsage); err != nil {
		return nil, err
	}

	mainPanelID, err := s.resolveMainPanel(ctx, req.MainPanelID, req.MainPanelIP, "")
	if err != nil {
		return nil, err
	}
	if mainPanelID != "" {
		if panel.PanelType == domain.PanelTypeControl {
			return nil, apperr.New(apperr.KindInvalidArgument, "control panel cannot have a main panel")
		}
		panel.MainPanelID = nullStr(mainPanelID)
	}

	if err := s.panels.CreatePanel(ctx, panel); err != nil {
		return nil, err
	}

	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, panel.PanelID,
		fmt.Sprintf("Panel %q created (%s)", panel.PanelName, panel.PanelType)))
	s.logger.Info("panel created",
		zap.String("panel_id", panel.PanelID),
		zap.String("panel_name", panel.PanelName),
		zap.String("panel_type", panel.PanelType))
	return panel, nil
}

// applyUsage 校验并写入 0~100 的占用率
func applyUsage(v *int, field string, dst *int) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 {
		return apperr.Newf(apperr.KindInvalidArgument, "%s must be between 0 and 100", field)
	}
	*dst = *v
	return nil
}

// resolveMainPanel 按 id 或 ip 解析主控盘
// 两者都给时以 id 为准；selfID 非空时拒绝指向自身
func (s *PanelService) resolveMainPanel(ctx context.Context, mainPanelID, mainPanelIP *string, selfID string) (string, error) {
	var main *domain.Panel
	var err error
	switch {
	case mainPanelID != nil && *mainPanelID != "":
		if err = ValidateID(*mainPanelID, "main_panel_id"); err != nil {
			return "", err
		}
		main, err = s.panels.GetPanel(ctx, *mainPanelID)
	case mainPanelIP != nil && *mainPanelIP != "":
		main, err = s.panels.GetPanelByIP(ctx, *mainPanelIP)
	default:
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if main.PanelType != domain.PanelTypeControl {
		return "", apperr.Newf(apperr.KindInvalidArgument,
			"main panel %q is not a control panel", main.PanelName)
	}
	if selfID != "" && main.PanelID == selfID {
		return "", apperr.New(apperr.KindInvalidArgument, "panel cannot be its own main panel")
	}
	return main.PanelID, nil
}

// UpdatePanelRequest 更新控制盘请求
// MainPanelID 指向空字符串表示摘除主控盘关联
type UpdatePanelRequest struct {
	PanelID        string
	PanelName      *string `json:"panel_name"`
	PanelType      *string `json:"panel_type"`
	Location       *string `json:"location"`
	IPAddress      *string `json:"ip_address"`
	SubnetMask     *string `json:"subnet_mask"`
	Gateway        *string `json:"gateway"`
	MainPanelID    *string `json:"main_panel_id"`
	MainPanelIP    *string `json:"main_panel_ip"`
	Status         *string `json:"status"`
	LoopsSupported *int    `json:"loops_supported"`
	RAMUsage       *int    `json:"ram_usage"`
	CPUUsage       *int    `json:"cpu_usage"`
}

// UpdatePanel 更新控制盘
// 状态/资源占用变化视作心跳，会刷新 Redis 中的心跳快照
func (s *PanelService) UpdatePanel(ctx context.Context, req *UpdatePanelRequest) (*domain.Panel, error) {
	if err := ValidateID(req.PanelID, "panel_id"); err != nil {
		return nil, err
	}
	existing, err := s.panels.GetPanel(ctx, req.PanelID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	effectiveType := existing.PanelType
	if req.PanelType != nil {
		if !domain.ValidPanelType(*req.PanelType) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid panel_type %q: allowed values are control, sub", *req.PanelType)
		}
		effectiveType = *req.PanelType
		updates["panel_type"] = *req.PanelType
	}
	if req.PanelName != nil {
		if strings.TrimSpace(*req.PanelName) == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "panel_name must not be empty")
		}
		updates["panel_name"] = strings.TrimSpace(*req.PanelName)
	}
	if req.Location != nil {
		updates["location"] = nullStr(*req.Location)
	}
	if req.IPAddress != nil {
		updates["ip_address"] = nullStr(*req.IPAddress)
	}
	if req.SubnetMask != nil {
		updates["subnet_mask"] = nullStr(*req.SubnetMask)
	}
	if req.Gateway != nil {
		updates["gateway"] = nullStr(*req.Gateway)
	}
	if req.Status != nil {
		if !domain.ValidPanelStatus(*req.Status) {
			return nil, apperr.Newf(apperr.KindInvalidArgument,
				"invalid status %q: allowed values are online, offline, fault", *req.Status)
		}
		updates["status"] = *req.Status
	}
	if req.LoopsSupported != nil {
		if *req.LoopsSupported < 0 {
			return nil, apperr.New(apperr.KindInvalidArgument, "loops_supported must not be negative")
		}
		updates["loops_supported"] = *req.LoopsSupported
	}
	if req.RAMUsage != nil {
		if *req.RAMUsage < 0 || *req.RAMUsage > 100 {
			return nil, apperr.New(apperr.KindInvalidArgument, "ram_usage must be between 0 and 100")
		}
		updates["ram_usage"] = *req.RAMUsage
	}
	if req.CPUUsage != nil {
		if *req.CPUUsage < 0 || *req.CPUUsage > 100 {
			return nil, apperr.New(apperr.KindInvalidArgument, "cpu_usage must be between 0 and 100")
		}
		updates["cpu_usage"] = *req.CPUUsage
	}

	// 主控盘机只对 sub 面板有意义；转成 control 时强制摘除
	if effectiveType == domain.PanelTypeControl {
		if existing.MainPanelID.Valid || req.MainPanelID != nil || req.MainPanelIP != nil {
			updates["main_panel_id"] = nil
		}
	} else if req.MainPanelID != nil && *req.MainPanelID == "" {
		updates["main_panel_id"] = nil
	} else if req.MainPanelID != nil || req.MainPanelIP != nil {
		mainPanelID, err := s.resolveMainPanel(ctx, req.MainPanelID, req.MainPanelIP, req.PanelID)
		if err != nil {
			return nil, err
		}
		if mainPanelID != "" {
			updates["main_panel_id"] = mainPanelID
		}
	}

	if len(updates) > 0 {
		if err := s.panels.UpdatePanel(ctx, req.PanelID, updates); err != nil {
			return nil, err
		}
	}
	updated, err := s.panels.GetPanel(ctx, req.PanelID)
	if err != nil {
		return nil, err
	}

	if existing.Status != updated.Status {
		s.events.Append(ctx, newEvent(domain.EventTypeStatusChange, domain.EventStatusInfo,
			domain.SourceTypePanel, updated.PanelID,
			fmt.Sprintf("Panel %q changed from %s to %s", updated.PanelName, existing.Status, updated.Status)))
	}
	if req.Status != nil || req.RAMUsage != nil || req.CPUUsage != nil {
		s.cacheHeartbeat(ctx, updated)
	}
	return updated, nil
}

// cacheHeartbeat 把最近一次状态上报写入 Redis，失败只记录
func (s *PanelService) cacheHeartbeat(ctx context.Context, panel *domain.Panel) {
	if s.kv == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"panel_id":    panel.PanelID,
		"status":      panel.Status,
		"ram_usage":   panel.RAMUsage,
		"cpu_usage":   panel.CPUUsage,
		"reported_at": time.Now(),
	})
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, heartbeatKey(panel.PanelID), string(payload), heartbeatTTL); err != nil {
		s.logger.Warn("failed to cache panel heartbeat",
			zap.String("panel_id", panel.PanelID), zap.Error(err))
	}
}

// GetHeartbeat 读取控制盘的心跳快照；缓存未命中返回 KindNotFound
func (s *PanelService) GetHeartbeat(ctx context.Context, panelID string) (map[string]any, error) {
	if err := ValidateID(panelID, "panel_id"); err != nil {
		return nil, err
	}
	if s.kv == nil {
		return nil, apperr.New(apperr.KindNotFound, "heartbeat cache is not configured")
	}
	raw, err := s.kv.Get(ctx, heartbeatKey(panelID))
	if err != nil {
		if err == store.ErrMiss {
			return nil, apperr.Newf(apperr.KindNotFound, "no recent heartbeat for panel: %s", panelID)
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to read heartbeat cache")
	}
	var snapshot map[string]any
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to decode heartbeat snapshot")
	}
	return snapshot, nil
}

// GetPanel 查询单个控制盘
func (s *PanelService) GetPanel(ctx context.Context, panelID string) (*domain.Panel, error) {
	if err := ValidateID(panelID, "panel_id"); err != nil {
		return nil, err
	}
	return s.panels.GetPanel(ctx, panelID)
}

// ListPanelsResponse 控制盘分页查询响应
type ListPanelsResponse struct {
	Panels []*domain.Panel `json:"panels"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
}

// ListPanels 按条件分页查询控制盘
func (s *PanelService) ListPanels(ctx context.Context, filters repository.PanelFilters, page, size int) (*ListPanelsResponse, error) {
	if filters.PanelType != "" && !domain.ValidPanelType(filters.PanelType) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid panel_type: %s", filters.PanelType)
	}
	if filters.Status != "" && !domain.ValidPanelStatus(filters.Status) {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "invalid status: %s", filters.Status)
	}
	page, size = normalizePage(page, size)
	panels, total, err := s.panels.ListPanels(ctx, filters, page, size)
	if err != nil {
		return nil, err
	}
	return &ListPanelsResponse{Panels: panels, Total: total, Page: page, Size: size}, nil
}

// DeletePanel 删除控制盘
// 仍有探测回路板、输出板或下挂子盘时拒绝，错误信息列出最多 3 个依赖名
func (s *PanelService) DeletePanel(ctx context.Context, panelID string) error {
	if err := ValidateID(panelID, "panel_id"); err != nil {
		return err
	}
	panel, err := s.panels.GetPanel(ctx, panelID)
	if err != nil {
		return err
	}

	falcCount, err := s.falcBoards.CountByPanel(ctx, panelID)
	if err != nil {
		return err
	}
	nacCount, err := s.nacBoards.CountByPanel(ctx, panelID)
	if err != nil {
		return err
	}
	subCount, err := s.panels.CountSubPanels(ctx, panelID)
	if err != nil {
		return err
	}
	if falcCount > 0 || nacCount > 0 || subCount > 0 {
		names, err := s.dependentNames(ctx, panelID, falcCount, nacCount, subCount)
		if err != nil {
			return err
		}
		var parts []string
		if falcCount > 0 {
			parts = append(parts, fmt.Sprintf("%d falc boards", falcCount))
		}
		if nacCount > 0 {
			parts = append(parts, fmt.Sprintf("%d nac boards", nacCount))
		}
		if subCount > 0 {
			parts = append(parts, fmt.Sprintf("%d sub-panels", subCount))
		}
		msg := fmt.Sprintf("cannot delete panel %q: %s still linked", panel.PanelName, strings.Join(parts, ", "))
		if len(names) > 0 {
			msg += fmt.Sprintf(" (e.g. %s)", strings.Join(names, ", "))
		}
		return apperr.New(apperr.KindDependencyExists, msg)
	}

	if err := s.panels.DeletePanel(ctx, panelID); err != nil {
		return err
	}
	if s.kv != nil {
		if err := s.kv.Delete(ctx, heartbeatKey(panelID)); err != nil {
			s.logger.Warn("failed to drop heartbeat cache", zap.String("panel_id", panelID), zap.Error(err))
		}
	}
	s.events.Append(ctx, newEvent(domain.EventTypeConfigChange, domain.EventStatusInfo,
		domain.SourceTypePanel, panelID,
		fmt.Sprintf("Panel %q deleted", panel.PanelName)))
	s.logger.Info("panel deleted", zap.String("panel_id", panelID), zap.String("panel_name", panel.PanelName))
	return nil
}

// dependentNames 取最多 3 个依赖实体名用于删除错误提示
func (s *PanelService) dependentNames(ctx context.Context, panelID string, falcCount, nacCount, subCount int) ([]string, error) {
	const maxNames = 3
	var names []string
	if falcCount > 0 {
		got, err := s.falcBoards.ListNamesByPanel(ctx, panelID, maxNames)
		if err != nil {
			return nil, err
		}
		names = append(names, got...)
	}
	if len(names) < maxNames && nacCount > 0 {
		got, err := s.nacBoards.ListNamesByPanel(ctx, panelID, maxNames-len(names))
		if err != nil {
			return nil, err
		}
		names = append(names, got...)
	}
	if len(names) < maxNames && subCount > 0 {
		got, err := s.panels.ListSubPanelNames(ctx, panelID, maxNames-len(names))
		if err != nil {
			return nil, err
		}
		names = append(names, got...)
	}
	if len(names) > maxNames {
		names = names[:maxNames]
	}
	return names, nil
}
