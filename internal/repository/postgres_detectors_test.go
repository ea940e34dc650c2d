package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
)

func setupMockDetectorsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresDetectorsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewPostgresDetectorsRepository(db)
	return db, mock, repo
}

func detectorRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"detector_id", "falc_board_id", "zone_id", "detector_address", "detector_name",
		"detector_type", "status", "is_active", "last_reading", "last_reported_at",
		"created_at", "updated_at",
	})
}

func TestGetDetector_Success(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	detectorID := "3d5c0a4e-0000-0000-0000-000000000001"
	boardID := "3d5c0a4e-0000-0000-0000-000000000002"
	now := time.Now()

	rows := detectorRows().AddRow(
		detectorID, boardID, nil, 7, "Lobby Smoke 7",
		domain.DetectorTypeSmoke, domain.DetectorStatusNormal, true, nil, now,
		now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(detectorID).WillReturnRows(rows)

	detector, err := repo.GetDetector(context.Background(), detectorID)
	require.NoError(t, err)
	assert.Equal(t, detectorID, detector.DetectorID)
	assert.Equal(t, boardID, detector.FalcBoardID)
	assert.Equal(t, 7, detector.DetectorAddress)
	assert.False(t, detector.ZoneID.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDetector_NotFound(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	detectorID := "3d5c0a4e-0000-0000-0000-00000000dead"
	mock.ExpectQuery(`SELECT`).WithArgs(detectorID).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDetector(context.Background(), detectorID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDetectorContext_Success(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	detectorID := "3d5c0a4e-0000-0000-0000-000000000001"
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"detector_id", "falc_board_id", "zone_id", "detector_address", "detector_name",
		"detector_type", "status", "is_active", "last_reading", "last_reported_at",
		"created_at", "updated_at",
		"board_name", "is_active", "panel_id", "status", "zone_name",
	}).AddRow(
		detectorID, "board-1", "zone-1", 7, "Lobby Smoke 7",
		domain.DetectorTypeSmoke, domain.DetectorStatusNormal, true, nil, now,
		now, now,
		"FALC-01", true, "panel-1", domain.PanelStatusOnline, "Floor 1",
	)
	mock.ExpectQuery(`SELECT`).WithArgs(detectorID).WillReturnRows(rows)

	dc, err := repo.GetDetectorContext(context.Background(), detectorID)
	require.NoError(t, err)
	assert.Equal(t, "FALC-01", dc.BoardName)
	assert.True(t, dc.BoardActive)
	assert.Equal(t, domain.PanelStatusOnline, dc.PanelStatus)
	assert.Equal(t, "Floor 1", dc.ZoneName.String)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDetector_Success(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	detector := &domain.Detector{
		FalcBoardID:     "board-1",
		DetectorAddress: 3,
		DetectorName:    "Lobby Smoke 3",
		DetectorType:    domain.DetectorTypeSmoke,
		Status:          domain.DetectorStatusNormal,
		IsActive:        true,
	}

	mock.ExpectExec(`INSERT INTO detectors`).
		WithArgs(
			sqlmock.AnyArg(), "board-1", detector.ZoneID, 3, "Lobby Smoke 3",
			domain.DetectorTypeSmoke, domain.DetectorStatusNormal, true, detector.LastReading,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 32,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateDetector(context.Background(), detector, 32)
	require.NoError(t, err)
	assert.NotEmpty(t, detector.DetectorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDetector_CapacityExceeded(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	detector := &domain.Detector{
		FalcBoardID:     "board-1",
		DetectorAddress: 9,
		DetectorType:    domain.DetectorTypeHeat,
		Status:          domain.DetectorStatusNormal,
		IsActive:        true,
	}

	// 条件插入未命中，0 行受影响
	mock.ExpectExec(`INSERT INTO detectors`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CreateDetector(context.Background(), detector, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDetector_DuplicateAddress(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	detector := &domain.Detector{
		FalcBoardID:     "board-1",
		DetectorAddress: 3,
		DetectorType:    domain.DetectorTypeSmoke,
		Status:          domain.DetectorStatusNormal,
		IsActive:        true,
	}

	mock.ExpectExec(`INSERT INTO detectors`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateDetector(context.Background(), detector, 32)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicateKey))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDetector_DisallowedField(t *testing.T) {
	db, _, repo := setupMockDetectorsDB(t)
	defer db.Close()

	err := repo.UpdateDetector(context.Background(), "detector-1", map[string]any{
		"detector_id": "other",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed to update")
}

func TestUpdateDetectorStatus_WithReading(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	reading := "0.42"
	reportedAt := time.Now()
	mock.ExpectExec(`UPDATE detectors`).
		WithArgs(domain.DetectorStatusAlarm, sqlmock.AnyArg(), reportedAt, "detector-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateDetectorStatus(context.Background(), "detector-1", domain.DetectorStatusAlarm, &reading, reportedAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDetectorStatus_NotFound(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	reportedAt := time.Now()
	mock.ExpectExec(`UPDATE detectors`).
		WithArgs(domain.DetectorStatusNormal, reportedAt, "detector-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDetectorStatus(context.Background(), "detector-missing", domain.DetectorStatusNormal, nil, reportedAt)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDetectors_FiltersAndPagination(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM detectors`).
		WithArgs("board-1", domain.DetectorStatusAlarm).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := detectorRows().AddRow(
		"detector-1", "board-1", nil, 5, "",
		domain.DetectorTypeSmoke, domain.DetectorStatusAlarm, true, "0.9", now,
		now, now,
	)
	mock.ExpectQuery(`SELECT`).
		WithArgs("board-1", domain.DetectorStatusAlarm, 20, 0).
		WillReturnRows(rows)

	detectors, total, err := repo.ListDetectors(context.Background(), DetectorFilters{
		FalcBoardID: "board-1",
		Status:      domain.DetectorStatusAlarm,
	}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, detectors, 1)
	assert.Equal(t, "0.9", detectors[0].LastReading.String)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByBoard(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM detectors`).
		WithArgs("board-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountByBoard(context.Background(), "board-1")
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDetectorsByStatus(t *testing.T) {
	db, mock, repo := setupMockDetectorsDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(domain.DetectorStatusNormal, 40).
		AddRow(domain.DetectorStatusAlarm, 2)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM detectors GROUP BY status`).
		WillReturnRows(rows)

	counts, err := repo.CountDetectorsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, counts[domain.DetectorStatusNormal])
	assert.Equal(t, 2, counts[domain.DetectorStatusAlarm])
	require.NoError(t, mock.ExpectationsWereMet())
}
