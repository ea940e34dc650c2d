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

// PostgresNacBoardsRepository 声光输出板Repository实现
type PostgresNacBoardsRepository struct {
	db *sql.DB
}

// NewPostgresNacBoardsRepository 创建声光输出板Repository
func NewPostgresNacBoardsRepository(db *sql.DB) *PostgresNacBoardsRepository {
	return &PostgresNacBoardsRepository{db: db}
}

// 确保实现了接口
var _ NacBoardsRepository = (*PostgresNacBoardsRepository)(nil)

const nacBoardColumns = `
	board_id::text,
	panel_id::text,
	board_name,
	description,
	is_active,
	status,
	circuit_count,
	created_at,
	updated_at
`

func scanNacBoard(row interface{ Scan(...any) error }) (*domain.NacBoard, error) {
	var b domain.NacBoard
	err := row.Scan(
		&b.BoardID,
		&b.PanelID,
		&b.BoardName,
		&b.Description,
		&b.IsActive,
		&b.Status,
		&b.CircuitCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByPanel 列出某控制盘下的全部声光输出板
func (r *PostgresNacBoardsRepository) ListByPanel(ctx context.Context, panelID string) ([]*domain.NacBoard, error) {
	query := fmt.Sprintf(`SELECT %s FROM nac_boards WHERE panel_id = $1 ORDER BY board_name ASC`, nacBoardColumns)

	rows, err := r.db.QueryContext(ctx, query, panelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nac boards: %w", err)
	}
	defer rows.Close()

	boards := []*domain.NacBoard{}
	for rows.Next() {
		b, err := scanNacBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nac board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// GetBoard 根据 board_id 获取单个声光输出板
func (r *PostgresNacBoardsRepository) GetBoard(ctx context.Context, boardID string) (*domain.NacBoard, error) {
	query := fmt.Sprintf(`SELECT %s FROM nac_boards WHERE board_id = $1`, nacBoardColumns)

	b, err := scanNacBoard(r.db.QueryRowContext(ctx, query, boardID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "nac board not found: %s", boardID)
		}
		return nil, fmt.Errorf("failed to get nac board: %w", err)
	}
	return b, nil
}

// CreateBoard 创建声光输出板（(panel_id, board_name) 唯一约束冲突 → DuplicateKey）
func (r *PostgresNacBoardsRepository) CreateBoard(ctx context.Context, board *domain.NacBoard) error {
	if board.BoardID == "" {
		board.BoardID = uuid.New().String()
	}
	now := time.Now()
	if board.CreatedAt.IsZero() {
		board.CreatedAt = now
	}
	if board.UpdatedAt.IsZero() {
		board.UpdatedAt = now
	}

	query := `
		INSERT INTO nac_boards (
			board_id, panel_id, board_name, description, is_active,
			status, circuit_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		board.BoardID,
		board.PanelID,
		board.BoardName,
		board.Description,
		board.IsActive,
		board.Status,
		board.CircuitCount,
		board.CreatedAt,
		board.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindDuplicateKey, "nac board name already exists in panel: %s", board.BoardName)
		}
		return fmt.Errorf("failed to create nac board: %w", err)
	}
	return nil
}

// UpdateBoard 部分更新（白名单字段）
func (r *PostgresNacBoardsRepository) UpdateBoard(ctx context.Context, boardID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	allowedFields := map[string]bool{
		"board_name":    true,
		"description":   true,
		"is_active":     true,
		"status":        true,
		"circuit_count": true,
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

	args = append(args, boardID)
	query := fmt.Sprintf(`UPDATE nac_boards SET %s WHERE board_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicateKey, "nac board name already exists in panel")
		}
		return fmt.Errorf("failed to update nac board: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "nac board not found: %s", boardID)
	}
	return nil
}

// DeleteBoard 物理删除（依赖守卫在 Service 层先行检查）
func (r *PostgresNacBoardsRepository) DeleteBoard(ctx context.Context, boardID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nac_boards WHERE board_id = $1`, boardID)
	if err != nil {
		return fmt.Errorf("failed to delete nac board: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "nac board not found: %s", boardID)
	}
	return nil
}

// CountByPanel 统计某控制盘下的声光输出板数量（盘删除守卫）
func (r *PostgresNacBoardsRepository) CountByPanel(ctx context.Context, panelID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nac_boards WHERE panel_id = $1`, panelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nac boards: %w", err)
	}
	return count, nil
}

// ListNamesByPanel 列出板名（盘删除守卫错误消息用，最多 limit 个）
func (r *PostgresNacBoardsRepository) ListNamesByPanel(ctx context.Context, panelID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT board_name FROM nac_boards WHERE panel_id = $1 ORDER BY board_name LIMIT $2`,
		panelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list nac board names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan nac board name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
