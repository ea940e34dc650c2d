package domain

import (
	"database/sql"
	"time"
)

// Zone 防火分区领域模型（对应 zones 表）
// 自引用树结构：parent_id 指向上级分区
// 不变式：不允许成环（re-parent 前沿 parent 链迭代检查）
type Zone struct {
	ZoneID      string         `db:"zone_id"`
	ZoneName    string         `db:"zone_name"` // NOT NULL
	ParentID    sql.NullString `db:"parent_id"` // nullable, 引用 zones
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (z *Zone) ToJSON() map[string]any {
	m := map[string]any{
		"zone_id":    z.ZoneID,
		"zone_name":  z.ZoneName,
		"created_at": z.CreatedAt,
		"updated_at": z.UpdatedAt,
	}
	if z.ParentID.Valid {
		m["parent_id"] = z.ParentID.String
	} else {
		m["parent_id"] = nil
	}
	if z.Description.Valid {
		m["description"] = z.Description.String
	}
	return m
}
