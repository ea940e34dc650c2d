package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"firewatch-data/internal/domain"
)

// ErrCapacityExceeded 条件插入未命中（并发下板卡容量已满）
// Service 层先行校验并给出带板名/上限的可读错误；这里兜底并发竞争
var ErrCapacityExceeded = errors.New("board capacity exceeded")

// isUniqueViolation 判断是否为 Postgres 唯一约束冲突（23505）
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// --- 过滤器 ---

// PanelFilters 控制盘列表过滤条件
type PanelFilters struct {
	PanelType string // 可选：control | sub
	Status    string // 可选：online | offline | fault
	Search    string // 可选：按名称/位置模糊匹配
}

// DetectorFilters 探测器列表过滤条件
type DetectorFilters struct {
	FalcBoardID  string
	ZoneID       string
	Status       string
	DetectorType string
}

// CircuitFilters 输出回路列表过滤条件
type CircuitFilters struct {
	NacBoardID string
	ZoneID     string
	Status     string
}

// EventLogFilters 事件日志列表过滤条件（全部条件取交集）
type EventLogFilters struct {
	EventType  string
	ZoneID     string
	PanelID    string
	SourceType string
	Status     string
	StartTime  *time.Time
	EndTime    *time.Time // 调用方负责把日期归一化为当日末（含当日）
	SortAsc    bool       // 默认按时间倒序
}

// --- 关联上下文（用于事件描述文本的反规范化读取） ---

// DetectorContext 探测器 + 所属板/盘/分区上下文
// 对应原系统 populate 式读取，这里显式 JOIN 取出
type DetectorContext struct {
	Detector    domain.Detector
	BoardName   string
	BoardActive bool
	PanelID     string
	PanelStatus string
	ZoneName    sql.NullString
}

// CircuitContext 输出回路 + 所属板/盘/分区上下文
type CircuitContext struct {
	Circuit     domain.NacCircuit
	BoardName   string
	BoardActive bool
	PanelID     string
	PanelStatus string
	ZoneName    sql.NullString
}

// --- Repository 接口 ---

// PanelsRepository 控制盘存储接口
type PanelsRepository interface {
	ListPanels(ctx context.Context, filters PanelFilters, page, size int) ([]*domain.Panel, int, error)
	GetPanel(ctx context.Context, panelID string) (*domain.Panel, error)
	GetPanelByIP(ctx context.Context, ip string) (*domain.Panel, error)
	CreatePanel(ctx context.Context, panel *domain.Panel) error
	UpdatePanel(ctx context.Context, panelID string, updates map[string]any) error
	DeletePanel(ctx context.Context, panelID string) error
	CountSubPanels(ctx context.Context, panelID string) (int, error)
	ListSubPanelNames(ctx context.Context, panelID string, limit int) ([]string, error)
	CountPanelsByStatus(ctx context.Context) (map[string]int, error)
}

// ZonesRepository 防火分区存储接口
type ZonesRepository interface {
	ListZones(ctx context.Context) ([]*domain.Zone, error)
	GetZone(ctx context.Context, zoneID string) (*domain.Zone, error)
	CreateZone(ctx context.Context, zone *domain.Zone) error
	UpdateZone(ctx context.Context, zoneID string, updates map[string]any) error
	DeleteZone(ctx context.Context, zoneID string) error
	ListChildren(ctx context.Context, zoneID string) ([]*domain.Zone, error)
	CountChildren(ctx context.Context, zoneID string) (int, error)
}

// FalcBoardsRepository 探测回路板存储接口
type FalcBoardsRepository interface {
	ListByPanel(ctx context.Context, panelID string) ([]*domain.FalcBoard, error)
	GetBoard(ctx context.Context, boardID string) (*domain.FalcBoard, error)
	CreateBoard(ctx context.Context, board *domain.FalcBoard) error
	UpdateBoard(ctx context.Context, boardID string, updates map[string]any) error
	DeleteBoard(ctx context.Context, boardID string) error
	CountByPanel(ctx context.Context, panelID string) (int, error)
	ListNamesByPanel(ctx context.Context, panelID string, limit int) ([]string, error)
}

// NacBoardsRepository 声光输出板存储接口
type NacBoardsRepository interface {
	ListByPanel(ctx context.Context, panelID string) ([]*domain.NacBoard, error)
	GetBoard(ctx context.Context, boardID string) (*domain.NacBoard, error)
	CreateBoard(ctx context.Context, board *domain.NacBoard) error
	UpdateBoard(ctx context.Context, boardID string, updates map[string]any) error
	DeleteBoard(ctx context.Context, boardID string) error
	CountByPanel(ctx context.Context, panelID string) (int, error)
	ListNamesByPanel(ctx context.Context, panelID string, limit int) ([]string, error)
}

// DetectorsRepository 探测器存储接口
type DetectorsRepository interface {
	ListDetectors(ctx context.Context, filters DetectorFilters, page, size int) ([]*domain.Detector, int, error)
	GetDetector(ctx context.Context, detectorID string) (*domain.Detector, error)
	GetDetectorContext(ctx context.Context, detectorID string) (*DetectorContext, error)
	// CreateDetector 条件插入：仅当板上现有探测器数 < capacity 时落库，
	// 否则返回 ErrCapacityExceeded（容量检查与写入同语句，避免 check-then-act 竞争）
	CreateDetector(ctx context.Context, detector *domain.Detector, capacity int) error
	UpdateDetector(ctx context.Context, detectorID string, updates map[string]any) error
	UpdateDetectorStatus(ctx context.Context, detectorID, status string, lastReading *string, reportedAt time.Time) error
	DeleteDetector(ctx context.Context, detectorID string) error
	CountByBoard(ctx context.Context, boardID string) (int, error)
	CountByZone(ctx context.Context, zoneID string) (int, error)
	CountDetectorsByStatus(ctx context.Context) (map[string]int, error)
}

// NacCircuitsRepository 声光输出回路存储接口
type NacCircuitsRepository interface {
	ListCircuits(ctx context.Context, filters CircuitFilters, page, size int) ([]*domain.NacCircuit, int, error)
	GetCircuit(ctx context.Context, circuitID string) (*domain.NacCircuit, error)
	GetCircuitContext(ctx context.Context, circuitID string) (*CircuitContext, error)
	CreateCircuit(ctx context.Context, circuit *domain.NacCircuit) error
	UpdateCircuit(ctx context.Context, circuitID string, updates map[string]any) error
	UpdateCircuitState(ctx context.Context, circuitID string, isActive bool, status string) error
	DeleteCircuit(ctx context.Context, circuitID string) error
	CountByBoard(ctx context.Context, boardID string) (int, error)
	CountByZone(ctx context.Context, zoneID string) (int, error)
}

// EventLogsRepository 事件日志存储接口（仅追加 + 确认）
type EventLogsRepository interface {
	CreateEventLog(ctx context.Context, event *domain.EventLog) error
	ListEventLogs(ctx context.Context, filters EventLogFilters, page, size int) ([]*domain.EventLog, int, error)
	GetEventLog(ctx context.Context, eventID string) (*domain.EventLog, error)
	// AcknowledgeEventLog 仅对 status=active 的记录生效
	AcknowledgeEventLog(ctx context.Context, eventID, acknowledgedBy string, at time.Time) error
	CountActiveByType(ctx context.Context) (map[string]int, error)
}
