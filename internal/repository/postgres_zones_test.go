package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
)

func setupMockZonesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresZonesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewPostgresZonesRepository(db)
	return db, mock, repo
}

func zoneRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"zone_id", "zone_name", "parent_id", "description", "created_at", "updated_at",
	})
}

func TestGetZone_Success(t *testing.T) {
	db, mock, repo := setupMockZonesDB(t)
	defer db.Close()

	zoneID := "z0000000-0000-0000-0000-000000000001"
	now := time.Now()
	rows := zoneRows().AddRow(zoneID, "Floor 1", nil, "First floor", now, now)
	mock.ExpectQuery(`SELECT`).WithArgs(zoneID).WillReturnRows(rows)

	zone, err := repo.GetZone(context.Background(), zoneID)
	require.NoError(t, err)
	assert.Equal(t, "Floor 1", zone.ZoneName)
	assert.False(t, zone.ParentID.Valid)
	assert.Equal(t, "First floor", zone.Description.String)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetZone_NotFound(t *testing.T) {
	db, mock, repo := setupMockZonesDB(t)
	defer db.Close()

	zoneID := "z0000000-0000-0000-0000-00000000dead"
	mock.ExpectQuery(`SELECT`).WithArgs(zoneID).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetZone(context.Background(), zoneID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateZone_GeneratesID(t *testing.T) {
	db, mock, repo := setupMockZonesDB(t)
	defer db.Close()

	zone := &domain.Zone{ZoneName: "Floor 2"}
	mock.ExpectExec(`INSERT INTO zones`).
		WithArgs(
			sqlmock.AnyArg(), "Floor 2", zone.ParentID, zone.Description,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateZone(context.Background(), zone))
	assert.NotEmpty(t, zone.ZoneID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateZone_NotFound(t *testing.T) {
	db, mock, repo := setupMockZonesDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE zones`).
		WithArgs("Renamed", "zone-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateZone(context.Background(), "zone-missing", map[string]any{"zone_name": "Renamed"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListChildren(t *testing.T) {
	db, mock, repo := setupMockZonesDB(t)
	defer db.Close()

	parentID := "z0000000-0000-0000-0000-000000000001"
	now := time.Now()
	rows := zoneRows().
		AddRow("child-1", "Room 101", parentID, nil, now, now).
		AddRow("child-2", "Room 102", parentID, nil, now, now)
	mock.ExpectQuery(`SELECT`).WithArgs(parentID).WillReturnRows(rows)

	children, err := repo.ListChildren(context.Background(), parentID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Room 101", children[0].ZoneName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountChildren(t *testing.T) {
	db, mock, repo := setupMockZonesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM zones`).
		WithArgs("zone-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountChildren(context.Background(), "zone-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
