package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/repository"
	"firewatch-data/internal/service"
)

const detectorsPrefix = "/api/v1/detectors"

// DetectorHandler 探测器管理 Handler
// 状态上报走状态引擎，配置变更走探测器服务
type DetectorHandler struct {
	detectors *service.DetectorService
	engine    *service.StatusEngine
	logger    *zap.Logger
}

// NewDetectorHandler 创建探测器 Handler
func NewDetectorHandler(detectors *service.DetectorService, engine *service.StatusEngine, logger *zap.Logger) *DetectorHandler {
	return &DetectorHandler{
		detectors: detectors,
		engine:    engine,
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *DetectorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, detectorsPrefix)
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.ListDetectors(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.CreateDetector(w, r)
	case strings.HasSuffix(rest, "/status") && r.Method == http.MethodPut:
		h.UpdateDetectorStatus(w, r, strings.TrimSuffix(rest, "/status"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetDetector(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdateDetector(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteDetector(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListDetectors 分页查询探测器
func (h *DetectorHandler) ListDetectors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.DetectorFilters{
		FalcBoardID:  q.Get("falc_board_id"),
		ZoneID:       q.Get("zone_id"),
		Status:       q.Get("status"),
		DetectorType: q.Get("detector_type"),
	}
	resp, err := h.detectors.ListDetectors(r.Context(), filters, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 50))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]any, 0, len(resp.Detectors))
	for _, d := range resp.Detectors {
		items = append(items, d.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
		"page":  resp.Page,
		"size":  resp.Size,
	}))
}

// CreateDetector 创建探测器
func (h *DetectorHandler) CreateDetector(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.CreateDetectorRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	detector, err := h.detectors.CreateDetector(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(detector.ToJSON()))
}

// GetDetector 查询单个探测器
func (h *DetectorHandler) GetDetector(w http.ResponseWriter, r *http.Request, detectorID string) {
	detector, err := h.detectors.GetDetector(r.Context(), detectorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detector.ToJSON()))
}

// UpdateDetector 更新探测器配置
func (h *DetectorHandler) UpdateDetector(w http.ResponseWriter, r *http.Request, detectorID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.UpdateDetectorRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.DetectorID = detectorID
	detector, err := h.detectors.UpdateDetector(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detector.ToJSON()))
}

// UpdateDetectorStatus 探测器状态上报（状态引擎入口）
func (h *DetectorHandler) UpdateDetectorStatus(w http.ResponseWriter, r *http.Request, detectorID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.UpdateDetectorStatusRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.DetectorID = detectorID
	resp, err := h.engine.UpdateDetectorStatus(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := map[string]any{"detector": resp.Detector.ToJSON()}
	if resp.Event != nil {
		out["event"] = resp.Event.ToJSON()
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// DeleteDetector 删除探测器
func (h *DetectorHandler) DeleteDetector(w http.ResponseWriter, r *http.Request, detectorID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	if err := h.detectors.DeleteDetector(r.Context(), detectorID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
