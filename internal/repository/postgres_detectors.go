package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
)

// PostgresDetectorsRepository 探测器Repository实现
type PostgresDetectorsRepository struct {
	db *sql.DB
}

// NewPostgresDetectorsRepository 创建探测器Repository
func NewPostgresDetectorsRepository(db *sql.DB) *PostgresDetectorsRepository {
	return &PostgresDetectorsRepository{db: db}
}

// 确保实现了接口
var _ DetectorsRepository = (*PostgresDetectorsRepository)(nil)

const detectorColumns = `
	d.detector_id::text,
	d.falc_board_id::text,
	d.zone_id::text,
	d.detector_address,
	d.detector_name,
	d.detector_type,
	d.status,
	d.is_active,
	d.last_reading,
	d.last_reported_at,
	d.created_at,
	d.updated_at
`

func scanDetector(row interface{ Scan(...any) error }, d *domain.Detector) error {
	return row.Scan(
		&d.DetectorID,
		&d.FalcBoardID,
		&d.ZoneID,
		&d.DetectorAddress,
		&d.DetectorName,
		&d.DetectorType,
		&d.Status,
		&d.IsActive,
		&d.LastReading,
		&d.LastReportedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// ListDetectors 列表查询（支持板/分区/状态/类型过滤、分页）
func (r *PostgresDetectorsRepository) ListDetectors(ctx context.Context, filters DetectorFilters, page, size int) ([]*domain.Detector, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters.FalcBoardID != "" {
		where = append(where, fmt.Sprintf("d.falc_board_id = $%d", argN))
		args = append(args, filters.FalcBoardID)
		argN++
	}
	if filters.ZoneID != "" {
		where = append(where, fmt.Sprintf("d.zone_id = $%d", argN))
		args = append(args, filters.ZoneID)
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("d.status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.DetectorType != "" {
		where = append(where, fmt.Sprintf("d.detector_type = $%d", argN))
		args = append(args, filters.DetectorType)
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM detectors d %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count detectors: %w", err)
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

	query := fmt.Sprintf(`
		SELECT %s
		FROM detectors d
		%s
		ORDER BY d.detector_address ASC
		LIMIT $%d OFFSET $%d
	`, detectorColumns, whereClause, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query detectors: %w", err)
	}
	defer rows.Close()

	detectors := []*domain.Detector{}
	for rows.Next() {
		var d domain.Detector
		if err := scanDetector(rows, &d); err != nil {
			return nil, 0, fmt.Errorf("failed to scan detector: %w", err)
		}
		detectors = append(detectors, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate detectors: %w", err)
	}

	return detectors, total, nil
}

// GetDetector 根据 detector_id 获取单个探测器
func (r *PostgresDetectorsRepository) GetDetector(ctx context.Context, detectorID string) (*domain.Detector, error) {
	query := fmt.Sprintf(`SELECT %s FROM detectors d WHERE d.detector_id = $1`, detectorColumns)

	var d domain.Detector
	if err := scanDetector(r.db.QueryRowContext(ctx, query, detectorID), &d); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
		}
		return nil, fmt.Errorf("failed to get detector: %w", err)
	}
	return &d, nil
}

// GetDetectorContext 获取探测器及其板/盘/分区上下文（事件描述文本用）
// 原系统的 populate 式读取在这里显式 JOIN 取出
func (r *PostgresDetectorsRepository) GetDetectorContext(ctx context.Context, detectorID string) (*DetectorContext, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			b.board_name,
			b.is_active,
			b.panel_id::text,
			p.status,
			z.zone_name
		FROM detectors d
		JOIN falc_boards b ON d.falc_board_id = b.board_id
		JOIN panels p ON b.panel_id = p.panel_id
		LEFT JOIN zones z ON d.zone_id = z.zone_id
		WHERE d.detector_id = $1
	`, detectorColumns)

	var dc DetectorContext
	err := r.db.QueryRowContext(ctx, query, detectorID).Scan(
		&dc.Detector.DetectorID,
		&dc.Detector.FalcBoardID,
		&dc.Detector.ZoneID,
		&dc.Detector.DetectorAddress,
		&dc.Detector.DetectorName,
		&dc.Detector.DetectorType,
		&dc.Detector.Status,
		&dc.Detector.IsActive,
		&dc.Detector.LastReading,
		&dc.Detector.LastReportedAt,
		&dc.Detector.CreatedAt,
		&dc.Detector.UpdatedAt,
		&dc.BoardName,
		&dc.BoardActive,
		&dc.PanelID,
		&dc.PanelStatus,
		&dc.ZoneName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
		}
		return nil, fmt.Errorf("failed to get detector context: %w", err)
	}
	return &dc, nil
}

// CreateDetector 条件插入：容量检查与写入同一条语句
// 板上现有探测器数 ≥ capacity 时插入 0 行并返回 ErrCapacityExceeded
func (r *PostgresDetectorsRepository) CreateDetector(ctx context.Context, detector *domain.Detector, capacity int) error {
	if detector.DetectorID == "" {
		detector.DetectorID = uuid.New().String()
	}
	now := time.Now()
	if detector.CreatedAt.IsZero() {
		detector.CreatedAt = now
	}
	if detector.UpdatedAt.IsZero() {
		detector.UpdatedAt = now
	}
	if detector.LastReportedAt.IsZero() {
		detector.LastReportedAt = now
	}

	query := `
		INSERT INTO detectors (
			detector_id, falc_board_id, zone_id, detector_address, detector_name,
			detector_type, status, is_active, last_reading, last_reported_at,
			created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		WHERE (SELECT COUNT(*) FROM detectors WHERE falc_board_id = $2) < $13
	`
	result, err := r.db.ExecContext(ctx, query,
		detector.DetectorID,
		detector.FalcBoardID,
		detector.ZoneID,
		detector.DetectorAddress,
		detector.DetectorName,
		detector.DetectorType,
		detector.Status,
		detector.IsActive,
		detector.LastReading,
		detector.LastReportedAt,
		detector.CreatedAt,
		detector.UpdatedAt,
		capacity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindDuplicateKey, "detector address %d already exists on board", detector.DetectorAddress)
		}
		return fmt.Errorf("failed to create detector: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

// UpdateDetector 部分更新（白名单字段）
func (r *PostgresDetectorsRepository) UpdateDetector(ctx context.Context, detectorID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	allowedFields := map[string]bool{
		"zone_id":          true,
		"detector_address": true,
		"detector_name":    true,
		"detector_type":    true,
		"status":           true,
		"is_active":        true,
		"last_reading":     true,
		"last_reported_at": true,
	}

	setParts := []string{}
	args := []any{}
	argN := 1
	for field, value := range updates {
		if !allowedFields[field] {
			return fmt.Errorf("field '%s' is not allowed to update", field)
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argN))
		args = append(args, value)
		argN++
	}
	setParts = append(setParts, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, detectorID)
	query := fmt.Sprintf(`UPDATE detectors SET %s WHERE detector_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicateKey, "detector address already exists on board")
		}
		return fmt.Errorf("failed to update detector: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	return nil
}

// UpdateDetectorStatus 状态写入：刷新 status / last_reading / last_reported_at
func (r *PostgresDetectorsRepository) UpdateDetectorStatus(ctx context.Context, detectorID, status string, lastReading *string, reportedAt time.Time) error {
	var reading sql.NullString
	if lastReading != nil {
		reading = sql.NullString{String: *lastReading, Valid: true}
	}

	var query string
	var args []any
	if lastReading != nil {
		query = `
			UPDATE detectors
			SET status = $1, last_reading = $2, last_reported_at = $3, updated_at = CURRENT_TIMESTAMP
			WHERE detector_id = $4
		`
		args = []any{status, reading, reportedAt, detectorID}
	} else {
		query = `
			UPDATE detectors
			SET status = $1, last_reported_at = $2, updated_at = CURRENT_TIMESTAMP
			WHERE detector_id = $3
		`
		args = []any{status, reportedAt, detectorID}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update detector status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	return nil
}

// DeleteDetector 物理删除
func (r *PostgresDetectorsRepository) DeleteDetector(ctx context.Context, detectorID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM detectors WHERE detector_id = $1`, detectorID)
	if err != nil {
		return fmt.Errorf("failed to delete detector: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	return nil
}

// CountByBoard 统计某板上的探测器数量（容量预检/板删除守卫）
func (r *PostgresDetectorsRepository) CountByBoard(ctx context.Context, boardID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM detectors WHERE falc_board_id = $1`, boardID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count detectors: %w", err)
	}
	return count, nil
}

// CountByZone 统计引用某分区的探测器数量（分区删除守卫）
func (r *PostgresDetectorsRepository) CountByZone(ctx context.Context, zoneID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM detectors WHERE zone_id = $1`, zoneID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count detectors by zone: %w", err)
	}
	return count, nil
}

// CountDetectorsByStatus 按状态统计（仪表盘汇总）
func (r *PostgresDetectorsRepository) CountDetectorsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM detectors GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count detectors by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan detector status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
