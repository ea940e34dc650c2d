package domain

import (
	"database/sql"
	"strconv"
	"time"
)

// 探测器类型
const (
	DetectorTypeSmoke = "smoke" // 感烟
	DetectorTypeHeat  = "heat"  // 感温
	DetectorTypeGas   = "gas"   // 可燃气体
)

// 探测器状态
const (
	DetectorStatusNormal   = "normal"
	DetectorStatusAlarm    = "alarm"
	DetectorStatusFault    = "fault"
	DetectorStatusDisabled = "disabled"
)

// ValidDetectorType 校验探测器类型枚举值
func ValidDetectorType(t string) bool {
	return t == DetectorTypeSmoke || t == DetectorTypeHeat || t == DetectorTypeGas
}

// ValidDetectorStatus 校验探测器状态枚举值
func ValidDetectorStatus(s string) bool {
	return s == DetectorStatusNormal || s == DetectorStatusAlarm ||
		s == DetectorStatusFault || s == DetectorStatusDisabled
}

// Detector 地址码探测器领域模型（对应 detectors 表）
// 不变式：(falc_board_id, detector_address) 唯一；单板探测器数 ≤ 板容量上限；
// last_reported_at 在创建与每次状态写入时刷新
type Detector struct {
	DetectorID      string         `db:"detector_id"`
	FalcBoardID     string         `db:"falc_board_id"` // NOT NULL, 引用 falc_boards
	ZoneID          sql.NullString `db:"zone_id"`       // nullable, 引用 zones
	DetectorAddress int            `db:"detector_address"` // ≥ 1, 板内唯一
	DetectorName    string         `db:"detector_name"`
	DetectorType    string         `db:"detector_type"` // smoke | heat | gas
	Status          string         `db:"status"`        // NOT NULL, default 'normal'
	IsActive        bool           `db:"is_active"`     // NOT NULL, default true
	LastReading     sql.NullString `db:"last_reading"`  // 最近一次上报读数（不解释内容）
	LastReportedAt  time.Time      `db:"last_reported_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// DisplayName 描述文本用的名称：优先探测器名，退化为地址码
func (d *Detector) DisplayName() string {
	if d.DetectorName != "" {
		return d.DetectorName
	}
	return "detector #" + strconv.Itoa(d.DetectorAddress)
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (d *Detector) ToJSON() map[string]any {
	m := map[string]any{
		"detector_id":      d.DetectorID,
		"falc_board_id":    d.FalcBoardID,
		"detector_address": d.DetectorAddress,
		"detector_name":    d.DetectorName,
		"detector_type":    d.DetectorType,
		"status":           d.Status,
		"is_active":        d.IsActive,
		"last_reported_at": d.LastReportedAt,
		"created_at":       d.CreatedAt,
		"updated_at":       d.UpdatedAt,
	}
	if d.ZoneID.Valid {
		m["zone_id"] = d.ZoneID.String
	} else {
		m["zone_id"] = nil
	}
	if d.LastReading.Valid {
		m["last_reading"] = d.LastReading.String
	}
	return m
}
