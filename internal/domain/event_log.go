package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// 事件类型
const (
	EventTypeFireAlarm    = "fire_alarm"
	EventTypeFault        = "fault"
	EventTypeRestore      = "restore"
	EventTypeOffline      = "offline"
	EventTypeActivation   = "activation"
	EventTypeDeactivation = "deactivation"
	EventTypeStatusChange = "status_change"
	EventTypeConfigChange = "config_change"
)

// 事件记录状态
// active → cleared 仅通过确认操作；info 创建即终态
const (
	EventStatusActive  = "active"
	EventStatusCleared = "cleared"
	EventStatusInfo    = "info"
)

// 事件来源类型
const (
	SourceTypeDetector = "detector"
	SourceTypeNAC      = "nac"
	SourceTypePanel    = "panel"
)

// ValidEventType 校验事件类型枚举值
func ValidEventType(t string) bool {
	switch t {
	case EventTypeFireAlarm, EventTypeFault, EventTypeRestore, EventTypeOffline,
		EventTypeActivation, EventTypeDeactivation, EventTypeStatusChange, EventTypeConfigChange:
		return true
	}
	return false
}

// ValidEventStatus 校验事件记录状态枚举值
func ValidEventStatus(s string) bool {
	return s == EventStatusActive || s == EventStatusCleared || s == EventStatusInfo
}

// ValidSourceType 校验事件来源类型枚举值
func ValidSourceType(t string) bool {
	return t == SourceTypeDetector || t == SourceTypeNAC || t == SourceTypePanel
}

// EventLog 事件日志领域模型（对应 event_logs 表）
// 仅追加；除确认操作外不允许修改
type EventLog struct {
	EventID        string          `db:"event_id"`
	Timestamp      time.Time       `db:"timestamp"`
	EventType      string          `db:"event_type"`
	Description    string          `db:"description"`
	SourceType     string          `db:"source_type"` // detector | nac | panel
	SourceID       string          `db:"source_id"`   // 来源实体 id（不作外键约束）
	ZoneID         sql.NullString  `db:"zone_id"`
	PanelID        sql.NullString  `db:"panel_id"`
	Status         string          `db:"status"` // active | cleared | info
	AcknowledgedAt sql.NullTime    `db:"acknowledged_at"`
	AcknowledgedBy sql.NullString  `db:"acknowledged_by"`
	Details        json.RawMessage `db:"details"` // JSONB，结构化上下文
	CreatedAt      time.Time       `db:"created_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (e *EventLog) ToJSON() map[string]any {
	m := map[string]any{
		"event_id":    e.EventID,
		"timestamp":   e.Timestamp,
		"event_type":  e.EventType,
		"description": e.Description,
		"source_type": e.SourceType,
		"source_id":   e.SourceID,
		"status":      e.Status,
		"created_at":  e.CreatedAt,
	}
	if e.ZoneID.Valid {
		m["zone_id"] = e.ZoneID.String
	} else {
		m["zone_id"] = nil
	}
	if e.PanelID.Valid {
		m["panel_id"] = e.PanelID.String
	} else {
		m["panel_id"] = nil
	}
	if e.AcknowledgedAt.Valid {
		m["acknowledged_at"] = e.AcknowledgedAt.Time
	}
	if e.AcknowledgedBy.Valid {
		m["acknowledged_by"] = e.AcknowledgedBy.String
	}
	if len(e.Details) > 0 {
		var details any
		if err := json.Unmarshal(e.Details, &details); err == nil {
			m["details"] = details
		} else {
			m["details"] = string(e.Details)
		}
	}
	return m
}
