package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
)

// StatusEngine 设备状态引擎
// 所有探测器状态上报与输出回路启停都经此处，负责：
// 持久化新状态、对比新旧状态派生事件类型、生成事件描述并追加日志
type StatusEngine struct {
	detectors repository.DetectorsRepository
	circuits  repository.NacCircuitsRepository
	events    *EventLogService
	logger    *zap.Logger
}

// NewStatusEngine 创建状态引擎
func NewStatusEngine(
	detectors repository.DetectorsRepository,
	circuits repository.NacCircuitsRepository,
	events *EventLogService,
	logger *zap.Logger,
) *StatusEngine {
	return &StatusEngine{
		detectors: detectors,
		circuits:  circuits,
		events:    events,
		logger:    logger,
	}
}

// UpdateDetectorStatusRequest 探测器状态上报请求
type UpdateDetectorStatusRequest struct {
	DetectorID  string
	Status      string  `json:"status"`
	LastReading *string `json:"last_reading"`
}

// UpdateDetectorStatusResponse 探测器状态上报结果
// Event 为本次上报派生的事件，未产生事件时为 nil
type UpdateDetectorStatusResponse struct {
	Detector *domain.Detector `json:"detector"`
	Event    *domain.EventLog `json:"event,omitempty"`
}

// UpdateDetectorStatus 处理一次探测器状态上报
// 状态总是落库（含读数与上报时间）；事件只在状态实际变化、
// 且所属板启用且控制盘在线时产生
func (e *StatusEngine) UpdateDetectorStatus(ctx context.Context, req *UpdateDetectorStatusRequest) (*UpdateDetectorStatusResponse, error) {
	if err := ValidateID(req.DetectorID, "detector_id"); err != nil {
		return nil, err
	}
	if req.Status == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "status is required")
	}
	if !domain.ValidDetectorStatus(req.Status) {
		return nil, apperr.Newf(apperr.KindInvalidArgument,
			"invalid status %q: allowed values are normal, alarm, fault, disabled", req.Status)
	}

	dc, err := e.detectors.GetDetectorContext(ctx, req.DetectorID)
	if err != nil {
		return nil, err
	}
	oldStatus := dc.Detector.Status

	now := time.Now()
	if err := e.detectors.UpdateDetectorStatus(ctx, req.DetectorID, req.Status, req.LastReading, now); err != nil {
		return nil, err
	}

	detector := dc.Detector
	detector.Status = req.Status
	if req.LastReading != nil {
		detector.LastReading = nullStr(*req.LastReading)
	}
	detector.LastReportedAt = now

	resp := &UpdateDetectorStatusResponse{Detector: &detector}
	if oldStatus == req.Status {
		return resp, nil
	}

	// 板停用或控制盘不在线时压制事件，状态本身仍已落库
	if !dc.BoardActive || dc.PanelStatus != domain.PanelStatusOnline {
		e.logger.Debug("event suppressed for inactive board or offline panel",
			zap.String("detector_id", req.DetectorID),
			zap.Bool("board_active", dc.BoardActive),
			zap.String("panel_status", dc.PanelStatus))
		return resp, nil
	}

	eventType := classifyDetectorTransition(oldStatus, req.Status)
	eventStatus := domain.EventStatusInfo
	if eventType == domain.EventTypeFireAlarm || eventType == domain.EventTypeFault {
		eventStatus = domain.EventStatusActive
	}

	event := newEvent(eventType, eventStatus, domain.SourceTypeDetector, detector.DetectorID,
		detectorEventDescription(eventType, &detector, dc.ZoneName, oldStatus))
	event.ZoneID = detector.ZoneID
	event.PanelID = nullStr(dc.PanelID)
	event.Details = detectorEventDetails(&detector, dc, oldStatus)
	e.events.Append(ctx, event)

	e.logger.Info("detector status changed",
		zap.String("detector_id", detector.DetectorID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", req.Status),
		zap.String("event_type", eventType))

	resp.Event = event
	return resp, nil
}

// classifyDetectorTransition 由新旧状态派生事件类型
func classifyDetectorTransition(oldStatus, newStatus string) string {
	switch {
	case newStatus == domain.DetectorStatusAlarm:
		return domain.EventTypeFireAlarm
	case newStatus == domain.DetectorStatusFault:
		return domain.EventTypeFault
	case newStatus == domain.DetectorStatusNormal &&
		(oldStatus == domain.DetectorStatusAlarm || oldStatus == domain.DetectorStatusFault):
		return domain.EventTypeRestore
	default:
		return domain.EventTypeStatusChange
	}
}

// detectorEventDescription 生成探测器事件的人读描述
func detectorEventDescription(eventType string, d *domain.Detector, zoneName sql.NullString, oldStatus string) string {
	name := d.DisplayName()
	var desc string
	switch eventType {
	case domain.EventTypeFireAlarm:
		switch d.DetectorType {
		case domain.DetectorTypeHeat:
			desc = fmt.Sprintf("ALARM: High temperature detected by %s", name)
		case domain.DetectorTypeGas:
			desc = fmt.Sprintf("ALARM: Gas leak detected by %s", name)
		default:
			desc = fmt.Sprintf("ALARM: Smoke detected by %s", name)
		}
	case domain.EventTypeFault:
		desc = fmt.Sprintf("FAULT: %s reported a fault", name)
	case domain.EventTypeRestore:
		desc = fmt.Sprintf("RESTORE: %s returned to normal", name)
	default:
		return fmt.Sprintf("STATUS: %s changed from %s to %s", name, oldStatus, d.Status)
	}
	if zoneName.Valid {
		desc += fmt.Sprintf(" in zone %q", zoneName.String)
	}
	if eventType == domain.EventTypeFireAlarm && d.LastReading.Valid {
		desc += fmt.Sprintf(" (reading: %s)", d.LastReading.String)
	}
	return desc
}

// detectorEventDetails 组装事件的结构化上下文
func detectorEventDetails(d *domain.Detector, dc *repository.DetectorContext, oldStatus string) json.RawMessage {
	payload := map[string]any{
		"old_status":       oldStatus,
		"new_status":       d.Status,
		"board_id":         d.FalcBoardID,
		"board_name":       dc.BoardName,
		"detector_address": d.DetectorAddress,
	}
	if d.LastReading.Valid {
		payload["last_reading"] = d.LastReading.String
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}

// ActivateCircuit 启用输出回路
func (e *StatusEngine) ActivateCircuit(ctx context.Context, circuitID string) (*domain.NacCircuit, error) {
	return e.setCircuitState(ctx, circuitID, true, domain.CircuitStatusNormal)
}

// DeactivateCircuit 停用输出回路
func (e *StatusEngine) DeactivateCircuit(ctx context.Context, circuitID string) (*domain.NacCircuit, error) {
	return e.setCircuitState(ctx, circuitID, false, domain.CircuitStatusDisabled)
}

// setCircuitState 切换输出回路启停，状态不变时为幂等空操作
// 输出回路事件一律 info：声光输出不参与报警确认流
func (e *StatusEngine) setCircuitState(ctx context.Context, circuitID string, isActive bool, status string) (*domain.NacCircuit, error) {
	if err := ValidateID(circuitID, "circuit_id"); err != nil {
		return nil, err
	}
	cc, err := e.circuits.GetCircuitContext(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	circuit := cc.Circuit
	if circuit.IsActive == isActive && circuit.Status == status {
		return &circuit, nil
	}
	oldStatus := circuit.Status
	oldActive := circuit.IsActive

	if err := e.circuits.UpdateCircuitState(ctx, circuitID, isActive, status); err != nil {
		return nil, err
	}
	circuit.IsActive = isActive
	circuit.Status = status

	eventType := classifyCircuitTransition(oldStatus, status, oldActive, isActive)
	event := newEvent(eventType, domain.EventStatusInfo, domain.SourceTypeNAC, circuitID,
		circuitEventDescription(eventType, &circuit, cc.ZoneName, oldStatus))
	event.ZoneID = circuit.ZoneID
	event.PanelID = nullStr(cc.PanelID)
	event.Details = circuitEventDetails(&circuit, cc, oldStatus, oldActive)
	e.events.Append(ctx, event)

	e.logger.Info("nac circuit state changed",
		zap.String("circuit_id", circuitID),
		zap.Bool("is_active", isActive),
		zap.String("old_status", oldStatus),
		zap.String("new_status", status),
		zap.String("event_type", eventType))
	return &circuit, nil
}

// classifyCircuitTransition 由输出回路的新旧状态派生事件类型
func classifyCircuitTransition(oldStatus, newStatus string, oldActive, newActive bool) string {
	switch {
	case newStatus == domain.CircuitStatusNormal &&
		(oldStatus == domain.CircuitStatusActive || oldStatus == domain.CircuitStatusFault):
		return domain.EventTypeRestore
	case oldStatus == newStatus && oldActive != newActive:
		return domain.EventTypeConfigChange
	case newStatus == domain.CircuitStatusDisabled:
		return domain.EventTypeDeactivation
	default:
		return domain.EventTypeStatusChange
	}
}

// circuitEventDescription 生成输出回路事件的人读描述
func circuitEventDescription(eventType string, c *domain.NacCircuit, zoneName sql.NullString, oldStatus string) string {
	label := fmt.Sprintf("Circuit %q (#%d)", c.CircuitName, c.CircuitNumber)
	var desc string
	switch eventType {
	case domain.EventTypeRestore:
		desc = fmt.Sprintf("%s returned to normal", label)
	case domain.EventTypeDeactivation:
		desc = fmt.Sprintf("%s deactivated", label)
	case domain.EventTypeConfigChange:
		action := "disabled"
		if c.IsActive {
			action = "enabled"
		}
		desc = fmt.Sprintf("%s %s", label, action)
	default:
		desc = fmt.Sprintf("%s changed from %s to %s", label, oldStatus, c.Status)
	}
	if zoneName.Valid {
		desc += fmt.Sprintf(" in zone %q", zoneName.String)
	}
	return desc
}

// circuitEventDetails 组装输出回路事件的结构化上下文
func circuitEventDetails(c *domain.NacCircuit, cc *repository.CircuitContext, oldStatus string, oldActive bool) json.RawMessage {
	raw, err := json.Marshal(map[string]any{
		"old_status":     oldStatus,
		"new_status":     c.Status,
		"old_is_active":  oldActive,
		"new_is_active":  c.IsActive,
		"board_id":       c.NacBoardID,
		"board_name":     cc.BoardName,
		"circuit_number": c.CircuitNumber,
	})
	if err != nil {
		return nil
	}
	return raw
}
