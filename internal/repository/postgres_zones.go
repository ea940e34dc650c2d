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

// PostgresZonesRepository 防火分区Repository实现
type PostgresZonesRepository struct {
	db *sql.DB
}

// NewPostgresZonesRepository 创建防火分区Repository
func NewPostgresZonesRepository(db *sql.DB) *PostgresZonesRepository {
	return &PostgresZonesRepository{db: db}
}

// 确保实现了接口
var _ ZonesRepository = (*PostgresZonesRepository)(nil)

const zoneColumns = `
	zone_id::text,
	zone_name,
	parent_id::text,
	description,
	created_at,
	updated_at
`

func scanZone(row interface{ Scan(...any) error }) (*domain.Zone, error) {
	var z domain.Zone
	err := row.Scan(
		&z.ZoneID,
		&z.ZoneName,
		&z.ParentID,
		&z.Description,
		&z.CreatedAt,
		&z.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &z, nil
}

// ListZones 全量列表（分区总数有界，环检测沿 parent 链逐个 Get，不需要整树载入）
func (r *PostgresZonesRepository) ListZones(ctx context.Context) ([]*domain.Zone, error) {
	query := fmt.Sprintf(`SELECT %s FROM zones ORDER BY zone_name ASC`, zoneColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	zones := []*domain.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// GetZone 根据 zone_id 获取单个分区
func (r *PostgresZonesRepository) GetZone(ctx context.Context, zoneID string) (*domain.Zone, error) {
	query := fmt.Sprintf(`SELECT %s FROM zones WHERE zone_id = $1`, zoneColumns)

	z, err := scanZone(r.db.QueryRowContext(ctx, query, zoneID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.KindNotFound, "zone not found: %s", zoneID)
		}
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	return z, nil
}

// CreateZone 创建分区
func (r *PostgresZonesRepository) CreateZone(ctx context.Context, zone *domain.Zone) error {
	if zone.ZoneID == "" {
		zone.ZoneID = uuid.New().String()
	}
	now := time.Now()
	if zone.CreatedAt.IsZero() {
		zone.CreatedAt = now
	}
	if zone.UpdatedAt.IsZero() {
		zone.UpdatedAt = now
	}

	query := `
		INSERT INTO zones (zone_id, zone_name, parent_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		zone.ZoneID,
		zone.ZoneName,
		zone.ParentID,
		zone.Description,
		zone.CreatedAt,
		zone.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create zone: %w", err)
	}
	return nil
}

// UpdateZone 部分更新（白名单字段）
func (r *PostgresZonesRepository) UpdateZone(ctx context.Context, zoneID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	allowedFields := map[string]bool{
		"zone_name":   true,
		"parent_id":   true,
		"description": true,
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

	args = append(args, zoneID)
	query := fmt.Sprintf(`UPDATE zones SET %s WHERE zone_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update zone: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "zone not found: %s", zoneID)
	}
	return nil
}

// DeleteZone 物理删除（依赖守卫在 Service 层先行检查）
func (r *PostgresZonesRepository) DeleteZone(ctx context.Context, zoneID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE zone_id = $1`, zoneID)
	if err != nil {
		return fmt.Errorf("failed to delete zone: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.Newf(apperr.KindNotFound, "zone not found: %s", zoneID)
	}
	return nil
}

// ListChildren 列出直接子分区
func (r *PostgresZonesRepository) ListChildren(ctx context.Context, zoneID string) ([]*domain.Zone, error) {
	query := fmt.Sprintf(`SELECT %s FROM zones WHERE parent_id = $1 ORDER BY zone_name ASC`, zoneColumns)

	rows, err := r.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child zones: %w", err)
	}
	defer rows.Close()

	zones := []*domain.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// CountChildren 统计直接子分区数量（删除守卫）
func (r *PostgresZonesRepository) CountChildren(ctx context.Context, zoneID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM zones WHERE parent_id = $1`, zoneID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count child zones: %w", err)
	}
	return count, nil
}
