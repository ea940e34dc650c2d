package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/service"
)

const zonesPrefix = "/api/v1/zones"

// ZoneHandler 防火分区管理 Handler
type ZoneHandler struct {
	zones  *service.ZoneService
	logger *zap.Logger
}

// NewZoneHandler 创建分区 Handler
func NewZoneHandler(zones *service.ZoneService, logger *zap.Logger) *ZoneHandler {
	return &ZoneHandler{zones: zones, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ZoneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, zonesPrefix)
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.ListZones(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.CreateZone(w, r)
	case strings.HasSuffix(rest, "/children") && r.Method == http.MethodGet:
		h.ListChildren(w, r, strings.TrimSuffix(rest, "/children"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetZone(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdateZone(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteZone(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListZones 查询全部分区
func (h *ZoneHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zones.ListZones(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]any, 0, len(zones))
	for _, z := range zones {
		items = append(items, z.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// CreateZone 创建分区
func (h *ZoneHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.CreateZoneRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	zone, err := h.zones.CreateZone(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(zone.ToJSON()))
}

// GetZone 查询单个分区
func (h *ZoneHandler) GetZone(w http.ResponseWriter, r *http.Request, zoneID string) {
	zone, err := h.zones.GetZone(r.Context(), zoneID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(zone.ToJSON()))
}

// UpdateZone 更新分区
func (h *ZoneHandler) UpdateZone(w http.ResponseWriter, r *http.Request, zoneID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.UpdateZoneRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.ZoneID = zoneID
	zone, err := h.zones.UpdateZone(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(zone.ToJSON()))
}

// DeleteZone 删除分区
func (h *ZoneHandler) DeleteZone(w http.ResponseWriter, r *http.Request, zoneID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	if err := h.zones.DeleteZone(r.Context(), zoneID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// ListChildren 查询直接子分区
func (h *ZoneHandler) ListChildren(w http.ResponseWriter, r *http.Request, zoneID string) {
	children, err := h.zones.ListChildren(r.Context(), zoneID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]any, 0, len(children))
	for _, z := range children {
		items = append(items, z.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
