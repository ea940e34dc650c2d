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

// PostgresPanelsRepository 控制盘Repository实现
type PostgresPanelsRepository struct {
	db *sql.DB
}

// NewPostgresPanelsRepository 创建控制盘Repository
func NewPostgresPanelsRepository(db *sql.DB) *PostgresPanelsRepository {
	return &PostgresPanelsRepository{db: db}
}

// 确保实现了接口
var _ PanelsRepository = (*PostgresPanelsRepository)(nil)

const panelColumns = `
	panel_id::text,
	panel_name,
	panel_type,
	location,
	ip_address,
	subnet_mask,
	gateway,
	main_panel_id::text,
	status,
	loops_supported,
	ram_usage,
	cpu_usage,
	created_at,
	updated_at
`

func scanPanel(row interface{ Scan(...any) error }) (*domain.Panel, error) {
	var p domain.Panel
	err := row.Scan(
		&p.PanelID,
		&p.PanelName,
		&p.PanelType,
		&p.Location,
		&p.IPAddress,
		&p.SubnetMask,
		&p.Gateway,
		&p.MainPanelID,
		&p.Status,
		&p.LoopsSupported,
		&p.RAMUsage,
		&p.CPUUsage,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPanels 列表查询（支持类型/状态过滤、名称模糊搜索、分页）
func (r *PostgresPanelsRepository) ListPanels(ctx context.Context, filters PanelFilters, page, size int) ([]*domain.Panel, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters.PanelType != "" {
		where = append(where, fmt.Sprintf("panel_type = $%d", argN))
		args = append(args, filters.PanelType)
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(panel_name ILIKE $%d OR location ILIKE $%d)", argN, argN))
		args = append(args, "%"+filters.Search+"%")
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM panels %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count panels: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT %s
		FROM panels
		%s
		ORDER BY panel_name ASC
		LIMIT $%d OFFSET $%d
	`, panelColumns, whereClause, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query panels: %w", err)
	}
	defer rows.Close()

	panels := []*domain.Panel{}
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan panel: %w", err)
		}
		panels = append(panels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate panels: %w", err)
	}

	return panels, total, nil
}

// GetPanel 根据 panel_id 获取单个控制盘
func (r *PostgresPanelsRepository) GetPanel(ctx context.Context, panelID string) (*domain.Panel, error) {
	query := fmt.Sprintf(`SELECT %s FROM panels WHERE panel_id = $1`, panelColumns)

	p, err := scanPanel(r.db.QueryRowContext(ctx, query, panelID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "panel not found: %s", panelID)
		}
		return nil, fmt.Errorf("failed to get panel: %w", err)
	}
	return p, nil
}

// GetPanelByIP 根据唯一 IP 地址获取控制盘（用于 sub 盘按 IP 关联 main 盘）
func (r *PostgresPanelsRepository) GetPanelByIP(ctx context.Context, ip string) (*domain.Panel, error) {
	query := fmt.Sprintf(`SELECT %s FROM panels WHERE ip_address = $1`, panelColumns)

	p, err := scanPanel(r.db.QueryRowContext(ctx, query, ip))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "no panel with ip_address %s", ip)
		}
		return nil, fmt.Errorf("failed to get panel by ip: %w", err)
	}
	return p, nil
}

// CreatePanel 创建控制盘
func (r *PostgresPanelsRepository) CreatePanel(ctx context.Context, panel *domain.Panel) error {
	if panel.PanelID == "" {
		panel.PanelID = uuid.New().String()
	}
	now := time.Now()
	if panel.CreatedAt.IsZero() {
		panel.CreatedAt = now
	}
	if panel.UpdatedAt.IsZero() {
		panel.UpdatedAt = now
	}

	query := `
		INSERT INTO panels (
			panel_id, panel_name, panel_type, location, ip_address,
			subnet_mask, gateway, main_panel_id, status, loops_supported,
			ram_usage, cpu_usage, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		panel.PanelID,
		panel.PanelName,
		panel.PanelType,
		panel.Location,
		panel.IPAddress,
		panel.SubnetMask,
		panel.Gateway,
		panel.MainPanelID,
		panel.Status,
		panel.LoopsSupported,
		panel.RAMUsage,
		panel.CPUUsage,
		panel.CreatedAt,
		panel.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindDuplicateKey, "panel name or ip_address already in use: %s", panel.PanelName)
		}
		return fmt.Errorf("failed to create panel: %w", err)
	}
	return nil
}

// UpdatePanel 部分更新（白名单字段）
func (r *PostgresPanelsRepository) UpdatePanel(ctx context.Context, panelID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	allowedFields := map[string]bool{
		"panel_name":      true,
		"panel_type":      true,
		"location":        true,
		"ip_address":      true,
		"subnet_mask":     true,
		"gateway":         true,
		"main_panel_id":   true,
		"status":          true,
		"loops_supported": true,
		"ram_usage":       true,
		"cpu_usage":       true,
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

	args = append(args, panelID)
	query := fmt.Sprintf(`UPDATE panels SET %s WHERE panel_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicateKey, "panel name or ip_address already in use")
		}
		return fmt.Errorf("failed to update panel: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "panel not found: %s", panelID)
	}
	return nil
}

// DeletePanel 物理删除（依赖守卫在 Service 层先行检查）
func (r *PostgresPanelsRepository) DeletePanel(ctx context.Context, panelID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM panels WHERE panel_id = $1`, panelID)
	if err != nil {
		return fmt.Errorf("failed to delete panel: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "panel not found: %s", panelID)
	}
	return nil
}

// CountSubPanels 统计以该盘为 main 盘的子盘数量（删除守卫）
func (r *PostgresPanelsRepository) CountSubPanels(ctx context.Context, panelID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM panels WHERE main_panel_id = $1`, panelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sub panels: %w", err)
	}
	return count, nil
}

// ListSubPanelNames 列出子盘名称（删除守卫错误消息用，最多 limit 个）
func (r *PostgresPanelsRepository) ListSubPanelNames(ctx context.Context, panelID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT panel_name FROM panels WHERE main_panel_id = $1 ORDER BY panel_name LIMIT $2`,
		panelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub panel names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan sub panel name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountPanelsByStatus 按状态统计（仪表盘汇总）
func (r *PostgresPanelsRepository) CountPanelsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM panels GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count panels by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan panel status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
