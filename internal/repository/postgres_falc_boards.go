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

// PostgresFalcBoardsRepository 探测回路板Repository实现
type PostgresFalcBoardsRepository struct {
	db *sql.DB
}

// NewPostgresFalcBoardsRepository 创建探测回路板Repository
func NewPostgresFalcBoardsRepository(db *sql.DB) *PostgresFalcBoardsRepository {
	return &PostgresFalcBoardsRepository{db: db}
}

// 确保实现了接口
var _ FalcBoardsRepository = (*PostgresFalcBoardsRepository)(nil)

const falcBoardColumns = `
	board_id::text,
	panel_id::text,
	board_name,
	description,
	is_active,
	status,
	number_of_detectors,
	created_at,
	updated_at
`

func scanFalcBoard(row interface{ Scan(...any) error }) (*domain.FalcBoard, error) {
	var b domain.FalcBoard
	err := row.Scan(
		&b.BoardID,
		&b.PanelID,
		&b.BoardName,
		&b.Description,
		&b.IsActive,
		&b.Status,
		&b.NumberOfDetectors,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByPanel 列出某控制盘下的全部探测回路板
func (r *PostgresFalcBoardsRepository) ListByPanel(ctx context.Context, panelID string) ([]*domain.FalcBoard, error) {
	query := fmt.Sprintf(`SELECT %s FROM falc_boards WHERE panel_id = $1 ORDER BY board_name ASC`, falcBoardColumns)

	rows, err := r.db.QueryContext(ctx, query, panelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query falc boards: %w", err)
	}
	defer rows.Close()

	boards := []*domain.FalcBoard{}
	for rows.Next() {
		b, err := scanFalcBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan falc board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// GetBoard 根据 board_id 获取单个探测回路板
func (r *PostgresFalcBoardsRepository) GetBoard(ctx context.Context, boardID string) (*domain.FalcBoard, error) {
	query := fmt.Sprintf(`SELECT %s FROM falc_boards WHERE board_id = $1`, falcBoardColumns)

	b, err := scanFalcBoard(r.db.QueryRowContext(ctx, query, boardID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "falc board not found: %s", boardID)
		}
		return nil, fmt.Errorf("failed to get falc board: %w", err)
	}
	return b, nil
}

// CreateBoard 创建探测回路板（(panel_id, board_name) 唯一约束冲突 → DuplicateKey）
func (r *PostgresFalcBoardsRepository) CreateBoard(ctx context.Context, board *domain.FalcBoard) error {
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
		INSERT INTO falc_boards (
			board_id, panel_id, board_name, description, is_active,
			status, number_of_detectors, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		board.BoardID,
		board.PanelID,
		board.BoardName,
		board.Description,
		board.IsActive,
		board.Status,
		board.NumberOfDetectors,
		board.CreatedAt,
		board.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindDuplicateKey, "falc board name already exists in panel: %s", board.BoardName)
		}
		return fmt.Errorf("failed to create falc board: %w", err)
	}
	return nil
}

// UpdateBoard 部分更新（白名单字段）
func (r *PostgresFalcBoardsRepository) UpdateBoard(ctx context.Context, boardID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	allowedFields := map[string]bool{
		"board_name":          true,
		"description":         true,
		"is_active":           true,
		"status":              true,
		"number_of_detectors": true,
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
	query := fmt.Sprintf(`UPDATE falc_boards SET %s WHERE board_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicateKey, "falc board name already exists in panel")
		}
		return fmt.Errorf("failed to update falc board: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "falc board not found: %s", boardID)
	}
	return nil
}

// DeleteBoard 物理删除（依赖守卫在 Service 层先行检查）
func (r *PostgresFalcBoardsRepository) DeleteBoard(ctx context.Context, boardID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM falc_boards WHERE board_id = $1`, boardID)
	if err != nil {
		return fmt.Errorf("failed to delete falc board: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "falc board not found: %s", boardID)
	}
	return nil
}

// CountByPanel 统计某控制盘下的探测回路板数量（盘删除守卫）
func (r *PostgresFalcBoardsRepository) CountByPanel(ctx context.Context, panelID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM falc_boards WHERE panel_id = $1`, panelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count falc boards: %w", err)
	}
	return count, nil
}

// ListNamesByPanel 列出板名（盘删除守卫错误消息用，最多 limit 个）
func (r *PostgresFalcBoardsRepository) ListNamesByPanel(ctx context.Context, panelID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT board_name FROM falc_boards WHERE panel_id = $1 ORDER BY board_name LIMIT $2`,
		panelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list falc board names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan falc board name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
