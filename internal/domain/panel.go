package domain

import (
	"database/sql"
	"time"
)

// 控制盘类型
const (
	PanelTypeControl = "control" // 中央控制盘
	PanelTypeSub     = "sub"     // 子盘（上报给某个中央盘）
)

// 控制盘状态
const (
	PanelStatusOnline  = "online"
	PanelStatusOffline = "offline"
	PanelStatusFault   = "fault"
)

// ValidPanelType 校验控制盘类型枚举值
func ValidPanelType(t string) bool {
	return t == PanelTypeControl || t == PanelTypeSub
}

// ValidPanelStatus 校验控制盘状态枚举值
func ValidPanelStatus(s string) bool {
	return s == PanelStatusOnline || s == PanelStatusOffline || s == PanelStatusFault
}

// Panel 火灾报警控制盘领域模型（对应 panels 表）
// 不变式：control 类型不允许设置 main_panel_id；sub 类型的 main 盘必须是 control 类型；不允许自引用
type Panel struct {
	PanelID     string         `db:"panel_id"`
	PanelName   string         `db:"panel_name"` // NOT NULL, 全局唯一
	PanelType   string         `db:"panel_type"` // NOT NULL: control | sub
	Location    sql.NullString `db:"location"`
	IPAddress   sql.NullString `db:"ip_address"` // nullable, 唯一
	SubnetMask  sql.NullString `db:"subnet_mask"`
	Gateway     sql.NullString `db:"gateway"`
	MainPanelID sql.NullString `db:"main_panel_id"` // nullable, 引用 panels
	Status      string         `db:"status"`        // NOT NULL, default 'offline'
	LoopsSupported int         `db:"loops_supported"`
	RAMUsage    int            `db:"ram_usage"` // 0..100
	CPUUsage    int            `db:"cpu_usage"` // 0..100
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (p *Panel) ToJSON() map[string]any {
	m := map[string]any{
		"panel_id":        p.PanelID,
		"panel_name":      p.PanelName,
		"panel_type":      p.PanelType,
		"status":          p.Status,
		"loops_supported": p.LoopsSupported,
		"ram_usage":       p.RAMUsage,
		"cpu_usage":       p.CPUUsage,
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
	if p.Location.Valid {
		m["location"] = p.Location.String
	}
	if p.IPAddress.Valid {
		m["ip_address"] = p.IPAddress.String
	}
	if p.SubnetMask.Valid {
		m["subnet_mask"] = p.SubnetMask.String
	}
	if p.Gateway.Valid {
		m["gateway"] = p.Gateway.String
	}
	if p.MainPanelID.Valid {
		m["main_panel_id"] = p.MainPanelID.String
	} else {
		m["main_panel_id"] = nil
	}
	return m
}
