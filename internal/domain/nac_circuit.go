package domain

import (
	"database/sql"
	"time"
)

// 输出回路状态
const (
	CircuitStatusNormal   = "normal"
	CircuitStatusActive   = "active" // 回路正在驱动声光设备
	CircuitStatusFault    = "fault"
	CircuitStatusDisabled = "disabled"
)

// 输出类型
const (
	OutputTypeAudible = "audible" // 警铃/警笛
	OutputTypeVisual  = "visual"  // 频闪灯
	OutputTypeRelay   = "relay"   // 联动继电器
	OutputTypeOther   = "other"
)

// ValidCircuitStatus 校验回路状态枚举值
func ValidCircuitStatus(s string) bool {
	return s == CircuitStatusNormal || s == CircuitStatusActive ||
		s == CircuitStatusFault || s == CircuitStatusDisabled
}

// ValidOutputType 校验输出类型枚举值
func ValidOutputType(t string) bool {
	return t == OutputTypeAudible || t == OutputTypeVisual ||
		t == OutputTypeRelay || t == OutputTypeOther
}

// NacCircuit 声光输出回路领域模型（对应 nac_circuits 表）
// 不变式：(nac_board_id, circuit_number) 唯一；circuit_number ∈ [1, 板 circuit_count]
type NacCircuit struct {
	CircuitID     string         `db:"circuit_id"`
	NacBoardID    string         `db:"nac_board_id"` // NOT NULL, 引用 nac_boards
	ZoneID        sql.NullString `db:"zone_id"`      // nullable, 引用 zones
	CircuitName   string         `db:"circuit_name"`
	CircuitNumber int            `db:"circuit_number"`
	IsActive      bool           `db:"is_active"` // NOT NULL, default true
	Status        string         `db:"status"`    // NOT NULL, default 'normal'
	OutputType    string         `db:"output_type"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (c *NacCircuit) ToJSON() map[string]any {
	m := map[string]any{
		"circuit_id":     c.CircuitID,
		"nac_board_id":   c.NacBoardID,
		"circuit_name":   c.CircuitName,
		"circuit_number": c.CircuitNumber,
		"is_active":      c.IsActive,
		"status":         c.Status,
		"output_type":    c.OutputType,
		"created_at":     c.CreatedAt,
		"updated_at":     c.UpdatedAt,
	}
	if c.ZoneID.Valid {
		m["zone_id"] = c.ZoneID.String
	} else {
		m["zone_id"] = nil
	}
	return m
}
