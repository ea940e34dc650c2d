package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
)

func newTestZoneService() (*ZoneService, *fakeZonesRepo, *fakeDetectorsRepo, *fakeCircuitsRepo) {
	zones := newFakeZonesRepo()
	detectors := newFakeDetectorsRepo()
	circuits := newFakeCircuitsRepo()
	svc := NewZoneService(zones, detectors, circuits, zap.NewNop())
	return svc, zones, detectors, circuits
}

func seedZone(zones *fakeZonesRepo, name, parentID string) *domain.Zone {
	z := &domain.Zone{ZoneID: uuid.New().String(), ZoneName: name}
	if parentID != "" {
		z.ParentID = nullStr(parentID)
	}
	zones.zones[z.ZoneID] = z
	return z
}

func TestCreateZone_RequiresName(t *testing.T) {
	svc, _, _, _ := newTestZoneService()

	_, err := svc.CreateZone(context.Background(), &CreateZoneRequest{ZoneName: "   "})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestCreateZone_UnknownParentRejected(t *testing.T) {
	svc, _, _, _ := newTestZoneService()
	parent := uuid.New().String()

	_, err := svc.CreateZone(context.Background(), &CreateZoneRequest{
		ZoneName: "Floor 2",
		ParentID: &parent,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateZone_WithParent(t *testing.T) {
	svc, zones, _, _ := newTestZoneService()
	root := seedZone(zones, "Building A", "")

	zone, err := svc.CreateZone(context.Background(), &CreateZoneRequest{
		ZoneName: "Floor 2",
		ParentID: &root.ZoneID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Floor 2", zone.ZoneName)
	assert.Equal(t, root.ZoneID, zone.ParentID.String)
}

func TestUpdateZone_SelfParentRejected(t *testing.T) {
	svc, zones, _, _ := newTestZoneService()
	z := seedZone(zones, "Floor 1", "")

	_, err := svc.UpdateZone(context.Background(), &UpdateZoneRequest{
		ZoneID:   z.ZoneID,
		ParentID: &z.ZoneID,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.Contains(t, err.Error(), "its own parent")
}

func TestUpdateZone_CycleRejected(t *testing.T) {
	svc, zones, _, _ := newTestZoneService()
	// a → b → c，之后试图把 a 挂到 c 下
	a := seedZone(zones, "A", "")
	b := seedZone(zones, "B", a.ZoneID)
	c := seedZone(zones, "C", b.ZoneID)

	_, err := svc.UpdateZone(context.Background(), &UpdateZoneRequest{
		ZoneID:   a.ZoneID,
		ParentID: &c.ZoneID,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.Contains(t, err.Error(), "would create a cycle")
}

func TestUpdateZone_ReparentToRoot(t *testing.T) {
	svc, zones, _, _ := newTestZoneService()
	a := seedZone(zones, "A", "")
	b := seedZone(zones, "B", a.ZoneID)

	empty := ""
	updated, err := svc.UpdateZone(context.Background(), &UpdateZoneRequest{
		ZoneID:   b.ZoneID,
		ParentID: &empty,
	})
	require.NoError(t, err)
	assert.False(t, updated.ParentID.Valid)
}

func TestUpdateZone_ReparentSibling(t *testing.T) {
	svc, zones, _, _ := newTestZoneService()
	a := seedZone(zones, "A", "")
	b := seedZone(zones, "B", a.ZoneID)
	c := seedZone(zones, "C", a.ZoneID)

	updated, err := svc.UpdateZone(context.Background(), &UpdateZoneRequest{
		ZoneID:   c.ZoneID,
		ParentID: &b.ZoneID,
	})
	require.NoError(t, err)
	assert.Equal(t, b.ZoneID, updated.ParentID.String)
}

func TestDeleteZone_WithDependentsRejected(t *testing.T) {
	svc, zones, detectors, _ := newTestZoneService()
	z := seedZone(zones, "Floor 1", "")
	seedZone(zones, "Room 101", z.ZoneID)
	seedZone(zones, "Room 102", z.ZoneID)

	d := domain.Detector{
		DetectorID:      uuid.New().String(),
		FalcBoardID:     uuid.New().String(),
		DetectorAddress: 1,
		DetectorType:    domain.DetectorTypeSmoke,
		Status:          domain.DetectorStatusNormal,
		ZoneID:          nullStr(z.ZoneID),
	}
	detectors.add(d, "FALC-01", true, uuid.New().String(), domain.PanelStatusOnline)

	err := svc.DeleteZone(context.Background(), z.ZoneID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindDependencyExists))
	assert.Contains(t, err.Error(), "2 child zones")
	assert.Contains(t, err.Error(), "1 detectors")
	// 被拒后分区仍在
	_, getErr := zones.GetZone(context.Background(), z.ZoneID)
	assert.NoError(t, getErr)
}

func TestDeleteZone_Success(t *testing.T) {
	svc, zones, _, _ := newTestZoneService()
	z := seedZone(zones, "Empty Wing", "")

	require.NoError(t, svc.DeleteZone(context.Background(), z.ZoneID))
	_, err := zones.GetZone(context.Background(), z.ZoneID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
