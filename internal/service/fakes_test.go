package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"firewatch-data/internal/apperr"
	"firewatch-data/internal/domain"
	"firewatch-data/internal/repository"
)

// 内存版 Repository 实现，服务层测试用

type fakePanelsRepo struct {
	panels    map[string]*domain.Panel
	subCounts map[string]int
	subNames  map[string][]string
	deleted   []string
}

func newFakePanelsRepo() *fakePanelsRepo {
	return &fakePanelsRepo{
		panels:    map[string]*domain.Panel{},
		subCounts: map[string]int{},
		subNames:  map[string][]string{},
	}
}

var _ repository.PanelsRepository = (*fakePanelsRepo)(nil)

func (f *fakePanelsRepo) ListPanels(ctx context.Context, filters repository.PanelFilters, page, size int) ([]*domain.Panel, int, error) {
	out := []*domain.Panel{}
	for _, p := range f.panels {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakePanelsRepo) GetPanel(ctx context.Context, panelID string) (*domain.Panel, error) {
	p, ok := f.panels[panelID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "panel not found: %s", panelID)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePanelsRepo) GetPanelByIP(ctx context.Context, ip string) (*domain.Panel, error) {
	for _, p := range f.panels {
		if p.IPAddress.Valid && p.IPAddress.String == ip {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "panel not found by ip: %s", ip)
}

func (f *fakePanelsRepo) CreatePanel(ctx context.Context, panel *domain.Panel) error {
	if panel.PanelID == "" {
		panel.PanelID = uuid.New().String()
	}
	cp := *panel
	f.panels[panel.PanelID] = &cp
	return nil
}

func (f *fakePanelsRepo) UpdatePanel(ctx context.Context, panelID string, updates map[string]any) error {
	p, ok := f.panels[panelID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "panel not found: %s", panelID)
	}
	for field, value := range updates {
		switch field {
		case "panel_name":
			p.PanelName = value.(string)
		case "panel_type":
			p.PanelType = value.(string)
		case "status":
			p.Status = value.(string)
		case "ram_usage":
			p.RAMUsage = value.(int)
		case "cpu_usage":
			p.CPUUsage = value.(int)
		case "loops_supported":
			p.LoopsSupported = value.(int)
		case "main_panel_id":
			if value == nil {
				p.MainPanelID.Valid = false
				p.MainPanelID.String = ""
			} else {
				p.MainPanelID.Valid = true
				p.MainPanelID.String = value.(string)
			}
		}
	}
	return nil
}

func (f *fakePanelsRepo) DeletePanel(ctx context.Context, panelID string) error {
	if _, ok := f.panels[panelID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "panel not found: %s", panelID)
	}
	delete(f.panels, panelID)
	f.deleted = append(f.deleted, panelID)
	return nil
}

func (f *fakePanelsRepo) CountSubPanels(ctx context.Context, panelID string) (int, error) {
	return f.subCounts[panelID], nil
}

func (f *fakePanelsRepo) ListSubPanelNames(ctx context.Context, panelID string, limit int) ([]string, error) {
	names := f.subNames[panelID]
	if len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (f *fakePanelsRepo) CountPanelsByStatus(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, p := range f.panels {
		counts[p.Status]++
	}
	return counts, nil
}

type fakeZonesRepo struct {
	zones map[string]*domain.Zone
}

func newFakeZonesRepo() *fakeZonesRepo {
	return &fakeZonesRepo{zones: map[string]*domain.Zone{}}
}

var _ repository.ZonesRepository = (*fakeZonesRepo)(nil)

func (f *fakeZonesRepo) ListZones(ctx context.Context) ([]*domain.Zone, error) {
	out := []*domain.Zone{}
	for _, z := range f.zones {
		out = append(out, z)
	}
	return out, nil
}

func (f *fakeZonesRepo) GetZone(ctx context.Context, zoneID string) (*domain.Zone, error) {
	z, ok := f.zones[zoneID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "zone not found: %s", zoneID)
	}
	cp := *z
	return &cp, nil
}

func (f *fakeZonesRepo) CreateZone(ctx context.Context, zone *domain.Zone) error {
	if zone.ZoneID == "" {
		zone.ZoneID = uuid.New().String()
	}
	cp := *zone
	f.zones[zone.ZoneID] = &cp
	return nil
}

func (f *fakeZonesRepo) UpdateZone(ctx context.Context, zoneID string, updates map[string]any) error {
	z, ok := f.zones[zoneID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "zone not found: %s", zoneID)
	}
	for field, value := range updates {
		switch field {
		case "zone_name":
			z.ZoneName = value.(string)
		case "parent_id":
			if value == nil {
				z.ParentID.Valid = false
				z.ParentID.String = ""
			} else {
				z.ParentID.Valid = true
				z.ParentID.String = value.(string)
			}
		}
	}
	return nil
}

func (f *fakeZonesRepo) DeleteZone(ctx context.Context, zoneID string) error {
	if _, ok := f.zones[zoneID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "zone not found: %s", zoneID)
	}
	delete(f.zones, zoneID)
	return nil
}

func (f *fakeZonesRepo) ListChildren(ctx context.Context, zoneID string) ([]*domain.Zone, error) {
	out := []*domain.Zone{}
	for _, z := range f.zones {
		if z.ParentID.Valid && z.ParentID.String == zoneID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (f *fakeZonesRepo) CountChildren(ctx context.Context, zoneID string) (int, error) {
	children, _ := f.ListChildren(ctx, zoneID)
	return len(children), nil
}

type fakeFalcBoardsRepo struct {
	boards map[string]*domain.FalcBoard
}

func newFakeFalcBoardsRepo() *fakeFalcBoardsRepo {
	return &fakeFalcBoardsRepo{boards: map[string]*domain.FalcBoard{}}
}

var _ repository.FalcBoardsRepository = (*fakeFalcBoardsRepo)(nil)

func (f *fakeFalcBoardsRepo) ListByPanel(ctx context.Context, panelID string) ([]*domain.FalcBoard, error) {
	out := []*domain.FalcBoard{}
	for _, b := range f.boards {
		if b.PanelID == panelID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeFalcBoardsRepo) GetBoard(ctx context.Context, boardID string) (*domain.FalcBoard, error) {
	b, ok := f.boards[boardID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "falc board not found: %s", boardID)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeFalcBoardsRepo) CreateBoard(ctx context.Context, board *domain.FalcBoard) error {
	if board.BoardID == "" {
		board.BoardID = uuid.New().String()
	}
	cp := *board
	f.boards[board.BoardID] = &cp
	return nil
}

func (f *fakeFalcBoardsRepo) UpdateBoard(ctx context.Context, boardID string, updates map[string]any) error {
	b, ok := f.boards[boardID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "falc board not found: %s", boardID)
	}
	for field, value := range updates {
		switch field {
		case "board_name":
			b.BoardName = value.(string)
		case "status":
			b.Status = value.(string)
		case "is_active":
			b.IsActive = value.(bool)
		case "number_of_detectors":
			b.NumberOfDetectors = value.(int)
		}
	}
	return nil
}

func (f *fakeFalcBoardsRepo) DeleteBoard(ctx context.Context, boardID string) error {
	if _, ok := f.boards[boardID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "falc board not found: %s", boardID)
	}
	delete(f.boards, boardID)
	return nil
}

func (f *fakeFalcBoardsRepo) CountByPanel(ctx context.Context, panelID string) (int, error) {
	boards, _ := f.ListByPanel(ctx, panelID)
	return len(boards), nil
}

func (f *fakeFalcBoardsRepo) ListNamesByPanel(ctx context.Context, panelID string, limit int) ([]string, error) {
	boards, _ := f.ListByPanel(ctx, panelID)
	names := []string{}
	for _, b := range boards {
		if len(names) >= limit {
			break
		}
		names = append(names, b.BoardName)
	}
	return names, nil
}

type fakeNacBoardsRepo struct {
	boards map[string]*domain.NacBoard
}

func newFakeNacBoardsRepo() *fakeNacBoardsRepo {
	return &fakeNacBoardsRepo{boards: map[string]*domain.NacBoard{}}
}

var _ repository.NacBoardsRepository = (*fakeNacBoardsRepo)(nil)

func (f *fakeNacBoardsRepo) ListByPanel(ctx context.Context, panelID string) ([]*domain.NacBoard, error) {
	out := []*domain.NacBoard{}
	for _, b := range f.boards {
		if b.PanelID == panelID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeNacBoardsRepo) GetBoard(ctx context.Context, boardID string) (*domain.NacBoard, error) {
	b, ok := f.boards[boardID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "nac board not found: %s", boardID)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeNacBoardsRepo) CreateBoard(ctx context.Context, board *domain.NacBoard) error {
	if board.BoardID == "" {
		board.BoardID = uuid.New().String()
	}
	cp := *board
	f.boards[board.BoardID] = &cp
	return nil
}

func (f *fakeNacBoardsRepo) UpdateBoard(ctx context.Context, boardID string, updates map[string]any) error {
	b, ok := f.boards[boardID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "nac board not found: %s", boardID)
	}
	for field, value := range updates {
		switch field {
		case "board_name":
			b.BoardName = value.(string)
		case "status":
			b.Status = value.(string)
		case "is_active":
			b.IsActive = value.(bool)
		case "circuit_count":
			b.CircuitCount = value.(int)
		}
	}
	return nil
}

func (f *fakeNacBoardsRepo) DeleteBoard(ctx context.Context, boardID string) error {
	if _, ok := f.boards[boardID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "nac board not found: %s", boardID)
	}
	delete(f.boards, boardID)
	return nil
}

func (f *fakeNacBoardsRepo) CountByPanel(ctx context.Context, panelID string) (int, error) {
	boards, _ := f.ListByPanel(ctx, panelID)
	return len(boards), nil
}

func (f *fakeNacBoardsRepo) ListNamesByPanel(ctx context.Context, panelID string, limit int) ([]string, error) {
	boards, _ := f.ListByPanel(ctx, panelID)
	names := []string{}
	for _, b := range boards {
		if len(names) >= limit {
			break
		}
		names = append(names, b.BoardName)
	}
	return names, nil
}

type fakeDetectorsRepo struct {
	detectors    map[string]*domain.Detector
	contexts     map[string]*repository.DetectorContext
	statusWrites int
	lastUpdates  map[string]any
}

func newFakeDetectorsRepo() *fakeDetectorsRepo {
	return &fakeDetectorsRepo{
		detectors: map[string]*domain.Detector{},
		contexts:  map[string]*repository.DetectorContext{},
	}
}

var _ repository.DetectorsRepository = (*fakeDetectorsRepo)(nil)

// add 登记探测器及其上下文
func (f *fakeDetectorsRepo) add(d domain.Detector, boardName string, boardActive bool, panelID, panelStatus string) {
	cp := d
	f.detectors[d.DetectorID] = &cp
	ctxCopy := d
	f.contexts[d.DetectorID] = &repository.DetectorContext{
		Detector:    ctxCopy,
		BoardName:   boardName,
		BoardActive: boardActive,
		PanelID:     panelID,
		PanelStatus: panelStatus,
	}
}

func (f *fakeDetectorsRepo) ListDetectors(ctx context.Context, filters repository.DetectorFilters, page, size int) ([]*domain.Detector, int, error) {
	out := []*domain.Detector{}
	for _, d := range f.detectors {
		out = append(out, d)
	}
	return out, len(out), nil
}

func (f *fakeDetectorsRepo) GetDetector(ctx context.Context, detectorID string) (*domain.Detector, error) {
	d, ok := f.detectors[detectorID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDetectorsRepo) GetDetectorContext(ctx context.Context, detectorID string) (*repository.DetectorContext, error) {
	dc, ok := f.contexts[detectorID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	cp := *dc
	return &cp, nil
}

func (f *fakeDetectorsRepo) CreateDetector(ctx context.Context, detector *domain.Detector, capacity int) error {
	count := 0
	for _, d := range f.detectors {
		if d.FalcBoardID == detector.FalcBoardID {
			count++
		}
	}
	if count >= capacity {
		return repository.ErrCapacityExceeded
	}
	if detector.DetectorID == "" {
		detector.DetectorID = uuid.New().String()
	}
	cp := *detector
	f.detectors[detector.DetectorID] = &cp
	return nil
}

func (f *fakeDetectorsRepo) UpdateDetector(ctx context.Context, detectorID string, updates map[string]any) error {
	d, ok := f.detectors[detectorID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	f.lastUpdates = updates
	for field, value := range updates {
		switch field {
		case "status":
			d.Status = value.(string)
		case "is_active":
			d.IsActive = value.(bool)
		case "detector_address":
			d.DetectorAddress = value.(int)
		case "detector_type":
			d.DetectorType = value.(string)
		case "last_reported_at":
			d.LastReportedAt = value.(time.Time)
		}
	}
	return nil
}

func (f *fakeDetectorsRepo) UpdateDetectorStatus(ctx context.Context, detectorID, status string, lastReading *string, reportedAt time.Time) error {
	d, ok := f.detectors[detectorID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	f.statusWrites++
	d.Status = status
	if lastReading != nil {
		d.LastReading.Valid = true
		d.LastReading.String = *lastReading
	}
	d.LastReportedAt = reportedAt
	return nil
}

func (f *fakeDetectorsRepo) DeleteDetector(ctx context.Context, detectorID string) error {
	if _, ok := f.detectors[detectorID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "detector not found: %s", detectorID)
	}
	delete(f.detectors, detectorID)
	return nil
}

func (f *fakeDetectorsRepo) CountByBoard(ctx context.Context, boardID string) (int, error) {
	count := 0
	for _, d := range f.detectors {
		if d.FalcBoardID == boardID {
			count++
		}
	}
	return count, nil
}

func (f *fakeDetectorsRepo) CountByZone(ctx context.Context, zoneID string) (int, error) {
	count := 0
	for _, d := range f.detectors {
		if d.ZoneID.Valid && d.ZoneID.String == zoneID {
			count++
		}
	}
	return count, nil
}

func (f *fakeDetectorsRepo) CountDetectorsByStatus(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, d := range f.detectors {
		counts[d.Status]++
	}
	return counts, nil
}

type fakeCircuitsRepo struct {
	circuits map[string]*domain.NacCircuit
	contexts map[string]*repository.CircuitContext
}

func newFakeCircuitsRepo() *fakeCircuitsRepo {
	return &fakeCircuitsRepo{
		circuits: map[string]*domain.NacCircuit{},
		contexts: map[string]*repository.CircuitContext{},
	}
}

var _ repository.NacCircuitsRepository = (*fakeCircuitsRepo)(nil)

// add 登记输出回路及其上下文
func (f *fakeCircuitsRepo) add(c domain.NacCircuit, boardName string, boardActive bool, panelID, panelStatus string) {
	cp := c
	f.circuits[c.CircuitID] = &cp
	ctxCopy := c
	f.contexts[c.CircuitID] = &repository.CircuitContext{
		Circuit:     ctxCopy,
		BoardName:   boardName,
		BoardActive: boardActive,
		PanelID:     panelID,
		PanelStatus: panelStatus,
	}
}

func (f *fakeCircuitsRepo) ListCircuits(ctx context.Context, filters repository.CircuitFilters, page, size int) ([]*domain.NacCircuit, int, error) {
	out := []*domain.NacCircuit{}
	for _, c := range f.circuits {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeCircuitsRepo) GetCircuit(ctx context.Context, circuitID string) (*domain.NacCircuit, error) {
	c, ok := f.circuits[circuitID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "circuit not found: %s", circuitID)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCircuitsRepo) GetCircuitContext(ctx context.Context, circuitID string) (*repository.CircuitContext, error) {
	cc, ok := f.contexts[circuitID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "circuit not found: %s", circuitID)
	}
	cp := *cc
	cp.Circuit = *f.circuits[circuitID]
	return &cp, nil
}

func (f *fakeCircuitsRepo) CreateCircuit(ctx context.Context, circuit *domain.NacCircuit) error {
	if circuit.CircuitID == "" {
		circuit.CircuitID = uuid.New().String()
	}
	cp := *circuit
	f.circuits[circuit.CircuitID] = &cp
	return nil
}

func (f *fakeCircuitsRepo) UpdateCircuit(ctx context.Context, circuitID string, updates map[string]any) error {
	c, ok := f.circuits[circuitID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "circuit not found: %s", circuitID)
	}
	for field, value := range updates {
		switch field {
		case "circuit_name":
			c.CircuitName = value.(string)
		case "circuit_number":
			c.CircuitNumber = value.(int)
		case "output_type":
			c.OutputType = value.(string)
		}
	}
	return nil
}

func (f *fakeCircuitsRepo) UpdateCircuitState(ctx context.Context, circuitID string, isActive bool, status string) error {
	c, ok := f.circuits[circuitID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "circuit not found: %s", circuitID)
	}
	c.IsActive = isActive
	c.Status = status
	return nil
}

func (f *fakeCircuitsRepo) DeleteCircuit(ctx context.Context, circuitID string) error {
	if _, ok := f.circuits[circuitID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "circuit not found: %s", circuitID)
	}
	delete(f.circuits, circuitID)
	return nil
}

func (f *fakeCircuitsRepo) CountByBoard(ctx context.Context, boardID string) (int, error) {
	count := 0
	for _, c := range f.circuits {
		if c.NacBoardID == boardID {
			count++
		}
	}
	return count, nil
}

func (f *fakeCircuitsRepo) CountByZone(ctx context.Context, zoneID string) (int, error) {
	count := 0
	for _, c := range f.circuits {
		if c.ZoneID.Valid && c.ZoneID.String == zoneID {
			count++
		}
	}
	return count, nil
}

type fakeEventLogsRepo struct {
	appended    []*domain.EventLog
	lastFilters repository.EventLogFilters
}

func newFakeEventLogsRepo() *fakeEventLogsRepo {
	return &fakeEventLogsRepo{}
}

var _ repository.EventLogsRepository = (*fakeEventLogsRepo)(nil)

func (f *fakeEventLogsRepo) CreateEventLog(ctx context.Context, event *domain.EventLog) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	cp := *event
	f.appended = append(f.appended, &cp)
	return nil
}

func (f *fakeEventLogsRepo) ListEventLogs(ctx context.Context, filters repository.EventLogFilters, page, size int) ([]*domain.EventLog, int, error) {
	f.lastFilters = filters
	return f.appended, len(f.appended), nil
}

func (f *fakeEventLogsRepo) GetEventLog(ctx context.Context, eventID string) (*domain.EventLog, error) {
	for _, e := range f.appended {
		if e.EventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "event log not found: %s", eventID)
}

func (f *fakeEventLogsRepo) AcknowledgeEventLog(ctx context.Context, eventID, acknowledgedBy string, at time.Time) error {
	for _, e := range f.appended {
		if e.EventID == eventID {
			if e.Status != domain.EventStatusActive {
				return apperr.Newf(apperr.KindInvalidArgument, "event log not active or not found: %s", eventID)
			}
			e.Status = domain.EventStatusCleared
			e.AcknowledgedAt.Valid = true
			e.AcknowledgedAt.Time = at
			e.AcknowledgedBy.Valid = true
			e.AcknowledgedBy.String = acknowledgedBy
			return nil
		}
	}
	return apperr.Newf(apperr.KindInvalidArgument, "event log not active or not found: %s", eventID)
}

func (f *fakeEventLogsRepo) CountActiveByType(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, e := range f.appended {
		if e.Status == domain.EventStatusActive {
			counts[e.EventType]++
		}
	}
	return counts, nil
}

// lastEvent 最近追加的事件；无事件时返回 nil
func (f *fakeEventLogsRepo) lastEvent() *domain.EventLog {
	if len(f.appended) == 0 {
		return nil
	}
	return f.appended[len(f.appended)-1]
}
