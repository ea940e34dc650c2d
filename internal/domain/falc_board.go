package domain

import (
	"database/sql"
	"time"
)

// 回路板/输出板状态（FALC 与 NAC 共用）
const (
	BoardStatusNormal  = "normal"
	BoardStatusFault   = "fault"
	BoardStatusOffline = "offline"
)

// FALC 板探测器容量上限（单板）
const (
	MinDetectorsPerBoard = 1
	MaxDetectorsPerBoard = 200
)

// ValidBoardStatus 校验板卡状态枚举值
func ValidBoardStatus(s string) bool {
	return s == BoardStatusNormal || s == BoardStatusFault || s == BoardStatusOffline
}

// FalcBoard 探测回路控制板领域模型（对应 falc_boards 表）
// 不变式：(panel_id, board_name) 唯一；is_active 与 status 联动——
// 停用强制 offline（fault 粘滞不覆盖），启用强制 normal
type FalcBoard struct {
	BoardID           string         `db:"board_id"`
	PanelID           string         `db:"panel_id"` // NOT NULL, 引用 panels
	BoardName         string         `db:"board_name"`
	Description       sql.NullString `db:"description"`
	IsActive          bool           `db:"is_active"` // NOT NULL, default true
	Status            string         `db:"status"`    // NOT NULL, default 'normal'
	NumberOfDetectors int            `db:"number_of_detectors"` // 容量上限 1..200
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (b *FalcBoard) ToJSON() map[string]any {
	m := map[string]any{
		"board_id":            b.BoardID,
		"panel_id":            b.PanelID,
		"board_name":          b.BoardName,
		"is_active":           b.IsActive,
		"status":              b.Status,
		"number_of_detectors": b.NumberOfDetectors,
		"created_at":          b.CreatedAt,
		"updated_at":          b.UpdatedAt,
	}
	if b.Description.Valid {
		m["description"] = b.Description.String
	}
	return m
}
