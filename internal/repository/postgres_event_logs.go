package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
)

// PostgresEventLogsRepository 事件日志Repository实现
// 仅追加：除确认操作外没有任何 UPDATE 入口
type PostgresEventLogsRepository struct {
	db *sql.DB
}

// NewPostgresEventLogsRepository 创建事件日志Repository
func NewPostgresEventLogsRepository(db *sql.DB) *PostgresEventLogsRepository {
	return &PostgresEventLogsRepository{db: db}
}

// 确保实现了接口
var _ EventLogsRepository = (*PostgresEventLogsRepository)(nil)

const eventLogColumns = `
	event_id::text,
	timestamp,
	event_type,
	description,
	source_type,
	source_id::text,
	zone_id::text,
	panel_id::text,
	status,
	acknowledged_at,
	acknowledged_by,
	details,
	created_at
`

func scanEventLog(row interface{ Scan(...any) error }) (*domain.EventLog, error) {
	var e domain.EventLog
	var details []byte
	err := row.Scan(
		&e.EventID,
		&e.Timestamp,
		&e.EventType,
		&e.Description,
		&e.SourceType,
		&e.SourceID,
		&e.ZoneID,
		&e.PanelID,
		&e.Status,
		&e.AcknowledgedAt,
		&e.AcknowledgedBy,
		&details,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		e.Details = details
	} else {
		e.Details = json.RawMessage("{}")
	}
	return &e, nil
}

// CreateEventLog 追加事件
func (r *PostgresEventLogsRepository) CreateEventLog(ctx context.Context, event *domain.EventLog) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	now := time.Now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.Status == "" {
		event.Status = domain.EventStatusInfo
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage("{}")
	}

	query := `
		INSERT INTO event_logs (
			event_id, timestamp, event_type, description, source_type,
			source_id, zone_id, panel_id, status, acknowledged_at,
			acknowledged_by, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.Timestamp,
		event.EventType,
		event.Description,
		event.SourceType,
		event.SourceID,
		event.ZoneID,
		event.PanelID,
		event.Status,
		event.AcknowledgedAt,
		event.AcknowledgedBy,
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event log: %w", err)
	}
	return nil
}

// ListEventLogs 列表查询（过滤条件取交集、分页、按时间排序）
func (r *PostgresEventLogsRepository) ListEventLogs(ctx context.Context, filters EventLogFilters, page, size int) ([]*domain.EventLog, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters.EventType != "" {
		where = append(where, fmt.Sprintf("event_type = $%d", argN))
		args = append(args, filters.EventType)
		argN++
	}
	if filters.ZoneID != "" {
		where = append(where, fmt.Sprintf("zone_id = $%d", argN))
		args = append(args, filters.ZoneID)
		argN++
	}
	if filters.PanelID != "" {
		where = append(where, fmt.Sprintf("panel_id = $%d", argN))
		args = append(args, filters.PanelID)
		argN++
	}
	if filters.SourceType != "" {
		where = append(where, fmt.Sprintf("source_type = $%d", argN))
		args = append(args, filters.SourceType)
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("timestamp >= $%d", argN))
		args = append(args, *filters.StartTime)
		argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("timestamp <= $%d", argN))
		args = append(args, *filters.EndTime)
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM event_logs %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count event logs: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	offset := (page - 1) * size

	order := "DESC"
	if filters.SortAsc {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM event_logs
		%s
		ORDER BY timestamp %s
		LIMIT $%d OFFSET $%d
	`, eventLogColumns, whereClause, order, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query event logs: %w", err)
	}
	defer rows.Close()

	events := []*domain.EventLog{}
	for rows.Next() {
		e, err := scanEventLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event log: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate event logs: %w", err)
	}

	return events, total, nil
}

// GetEventLog 根据 event_id 获取单条事件
func (r *PostgresEventLogsRepository) GetEventLog(ctx context.Context, eventID string) (*domain.EventLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_logs WHERE event_id = $1`, eventLogColumns)

	e, err := scanEventLog(r.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "event log not found: %s", eventID)
		}
		return nil, fmt.Errorf("failed to get event log: %w", err)
	}
	return e, nil
}

// AcknowledgeEventLog 确认事件：active → cleared，记录确认时间与确认人
// 仅对 active 记录生效；0 行受影响说明记录不存在或已非 active
func (r *PostgresEventLogsRepository) AcknowledgeEventLog(ctx context.Context, eventID, acknowledgedBy string, at time.Time) error {
	query := `
		UPDATE event_logs
		SET status = $1, acknowledged_at = $2, acknowledged_by = $3
		WHERE event_id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		domain.EventStatusCleared, at, acknowledgedBy, eventID, domain.EventStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to acknowledge event log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindInvalidArgument, "event log not active or not found: %s", eventID)
	}
	return nil
}

// CountActiveByType 按事件类型统计 active 记录（仪表盘汇总）
func (r *PostgresEventLogsRepository) CountActiveByType(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM event_logs WHERE status = 'active' GROUP BY event_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count active events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan active event count: %w", err)
		}
		counts[eventType] = count
	}
	return counts, rows.Err()
}
