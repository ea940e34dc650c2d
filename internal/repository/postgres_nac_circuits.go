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

// PostgresNacCircuitsRepository 声光输出回路Repository实现
type PostgresNacCircuitsRepository struct {
	db *sql.DB
}

// NewPostgresNacCircuitsRepository 创建声光输出回路Repository
func NewPostgresNacCircuitsRepository(db *sql.DB) *PostgresNacCircuitsRepository {
	return &PostgresNacCircuitsRepository{db: db}
}

// 确保实现了接口
var _ NacCircuitsRepository = (*PostgresNacCircuitsRepository)(nil)

const circuitColumns = `
	c.circuit_id::text,
	c.nac_board_id::text,
	c.zone_id::text,
	c.circuit_name,
	c.circuit_number,
	c.is_active,
	c.status,
	c.output_type,
	c.created_at,
	c.updated_at
`

func scanCircuit(row interface{ Scan(...any) error }, c *domain.NacCircuit) error {
	return row.Scan(
		&c.CircuitID,
		&c.NacBoardID,
		&c.ZoneID,
		&c.CircuitName,
		&c.CircuitNumber,
		&c.IsActive,
		&c.Status,
		&c.OutputType,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// ListCircuits 列表查询（支持板/分区/状态过滤、分页）
func (r *PostgresNacCircuitsRepository) ListCircuits(ctx context.Context, filters CircuitFilters, page, size int) ([]*domain.NacCircuit, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters.NacBoardID != "" {
		where = append(where, fmt.Sprintf("c.nac_board_id = $%d", argN))
		args = append(args, filters.NacBoardID)
		argN++
	}
	if filters.ZoneID != "" {
		where = append(where, fmt.Sprintf("c.zone_id = $%d", argN))
		args = append(args, filters.ZoneID)
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("c.status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM nac_circuits c %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count nac circuits: %w", err)
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
		FROM nac_circuits c
		%s
		ORDER BY c.circuit_number ASC
		LIMIT $%d OFFSET $%d
	`, circuitColumns, whereClause, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query nac circuits: %w", err)
	}
	defer rows.Close()

	circuits := []*domain.NacCircuit{}
	for rows.Next() {
		var c domain.NacCircuit
		if err := scanCircuit(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("failed to scan nac circuit: %w", err)
		}
		circuits = append(circuits, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate nac circuits: %w", err)
	}

	return circuits, total, nil
}

// GetCircuit 根据 circuit_id 获取单个输出回路
func (r *PostgresNacCircuitsRepository) GetCircuit(ctx context.Context, circuitID string) (*domain.NacCircuit, error) {
	query := fmt.Sprintf(`SELECT %s FROM nac_circuits c WHERE c.circuit_id = $1`, circuitColumns)

	var c domain.NacCircuit
	if err := scanCircuit(r.db.QueryRowContext(ctx, query, circuitID), &c); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "nac circuit not found: %s", circuitID)
		}
		return nil, fmt.Errorf("failed to get nac circuit: %w", err)
	}
	return &c, nil
}

// GetCircuitContext 获取回路及其板/盘/分区上下文（事件描述文本用）
func (r *PostgresNacCircuitsRepository) GetCircuitContext(ctx context.Context, circuitID string) (*CircuitContext, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			b.board_name,
			b.is_active,
			b.panel_id::text,
			p.status,
			z.zone_name
		FROM nac_circuits c
		JOIN nac_boards b ON c.nac_board_id = b.board_id
		JOIN panels p ON b.panel_id = p.panel_id
		LEFT JOIN zones z ON c.zone_id = z.zone_id
		WHERE c.circuit_id = $1
	`, circuitColumns)

	var cc CircuitContext
	err := r.db.QueryRowContext(ctx, query, circuitID).Scan(
		&cc.Circuit.CircuitID,
		&cc.Circuit.NacBoardID,
		&cc.Circuit.ZoneID,
		&cc.Circuit.CircuitName,
		&cc.Circuit.CircuitNumber,
		&cc.Circuit.IsActive,
		&cc.Circuit.Status,
		&cc.Circuit.OutputType,
		&cc.Circuit.CreatedAt,
		&cc.Circuit.UpdatedAt,
		&cc.BoardName,
		&cc.BoardActive,
		&cc.PanelID,
		&cc.PanelStatus,
		&cc.ZoneName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "nac circuit not found: %s", circuitID)
		}
		return nil, fmt.Errorf("failed to get nac circuit context: %w", err)
	}
	return &cc, nil
}

// CreateCircuit 创建输出回路（(nac_board_id, circuit_number) 唯一约束冲突 → DuplicateKey）
func (r *PostgresNacCircuitsRepository) CreateCircuit(ctx context.Context, circuit *domain.NacCircuit) error {
	if circuit.CircuitID == "" {
		circuit.CircuitID = uuid.New().String()
	}
	now := time.Now()
	if circuit.CreatedAt.IsZero() {
		circuit.CreatedAt = now
	}
	if circuit.UpdatedAt.IsZero() {
		circuit.UpdatedAt = now
	}

	query := `
		INSERT INTO nac_circuits (
			circuit_id, nac_board_id, zone_id, circuit_name, circuit_number,
			is_active, status, output_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		circuit.CircuitID,
		circuit.NacBoardID,
		circuit.ZoneID,
		circuit.CircuitName,
		circuit.CircuitNumber,
		circuit.IsActive,
		circuit.Status,
		circuit.OutputType,
		circuit.CreatedAt,
		circuit.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindDuplicateKey, "circuit number %d already exists on board", circuit.CircuitNumber)
		}
		return fmt.Errorf("failed to create nac circuit: %w", err)
	}
	return nil
}

// UpdateCircuit 部分更新（白名单字段）
func (r *PostgresNacCircuitsRepository) UpdateCircuit(ctx context.Context, circuitID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	allowedFields := map[string]bool{
		"zone_id":        true,
		"circuit_name":   true,
		"circuit_number": true,
		"is_active":      true,
		"status":         true,
		"output_type":    true,
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

	args = append(args, circuitID)
	query := fmt.Sprintf(`UPDATE nac_circuits SET %s WHERE circuit_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicateKey, "circuit number already exists on board")
		}
		return fmt.Errorf("failed to update nac circuit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "nac circuit not found: %s", circuitID)
	}
	return nil
}

// UpdateCircuitState 激活/停用写入：无条件设置 (is_active, status)
func (r *PostgresNacCircuitsRepository) UpdateCircuitState(ctx context.Context, circuitID string, isActive bool, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE nac_circuits SET is_active = $1, status = $2, updated_at = CURRENT_TIMESTAMP WHERE circuit_id = $3`,
		isActive, status, circuitID,
	)
	if err != nil {
		return fmt.Errorf("failed to update nac circuit state: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "nac circuit not found: %s", circuitID)
	}
	return nil
}

// DeleteCircuit 物理删除
func (r *PostgresNacCircuitsRepository) DeleteCircuit(ctx context.Context, circuitID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nac_circuits WHERE circuit_id = $1`, circuitID)
	if err != nil {
		return fmt.Errorf("failed to delete nac circuit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "nac circuit not found: %s", circuitID)
	}
	return nil
}

// CountByBoard 统计某板上的回路数量（板删除守卫）
func (r *PostgresNacCircuitsRepository) CountByBoard(ctx context.Context, boardID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nac_circuits WHERE nac_board_id = $1`, boardID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nac circuits: %w", err)
	}
	return count, nil
}

// CountByZone 统计引用某分区的回路数量（分区删除守卫）
func (r *PostgresNacCircuitsRepository) CountByZone(ctx context.Context, zoneID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nac_circuits WHERE zone_id = $1`, zoneID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nac circuits by zone: %w", err)
	}
	return count, nil
}
