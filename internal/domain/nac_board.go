package domain

import (
	"database/sql"
	"time"
)

// NacBoard 声光输出控制板领域模型（对应 nac_boards 表）
// 不变式：(panel_id, board_name) 唯一；circuit_count 是回路号的取值上限
type NacBoard struct {
	BoardID      string         `db:"board_id"`
	PanelID      string         `db:"panel_id"` // NOT NULL, 引用 panels
	BoardName    string         `db:"board_name"`
	Description  sql.NullString `db:"description"`
	IsActive     bool           `db:"is_active"` // NOT NULL, default true
	Status       string         `db:"status"`    // NOT NULL, default 'normal'
	CircuitCount int            `db:"circuit_count"` // 容量上限（回路号 ∈ [1, circuit_count]）
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (b *NacBoard) ToJSON() map[string]any {
	m := map[string]any{
		"board_id":      b.BoardID,
		"panel_id":      b.PanelID,
		"board_name":    b.BoardName,
		"is_active":     b.IsActive,
		"status":        b.Status,
		"circuit_count": b.CircuitCount,
		"created_at":    b.CreatedAt,
		"updated_at":    b.UpdatedAt,
	}
	if b.Description.Valid {
		m["description"] = b.Description.String
	}
	return m
}
