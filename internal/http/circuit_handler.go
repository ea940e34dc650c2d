package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/repository"
	"firewatch-data/internal/service"
)

const circuitsPrefix = "/api/v1/nac-circuits"

// CircuitHandler 声光输出回路管理 Handler
type CircuitHandler struct {
	circuits *service.CircuitService
	engine   *service.StatusEngine
	logger   *zap.Logger
}

// NewCircuitHandler 创建输出回路 Handler
func NewCircuitHandler(circuits *service.CircuitService, engine *service.StatusEngine, logger *zap.Logger) *CircuitHandler {
	return &CircuitHandler{
		circuits: circuits,
		engine:   engine,
		logger:   logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *CircuitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, circuitsPrefix)
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.ListCircuits(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.CreateCircuit(w, r)
	case strings.HasSuffix(rest, "/activate") && r.Method == http.MethodPost:
		h.ActivateCircuit(w, r, strings.TrimSuffix(rest, "/activate"))
	case strings.HasSuffix(rest, "/deactivate") && r.Method == http.MethodPost:
		h.DeactivateCircuit(w, r, strings.TrimSuffix(rest, "/deactivate"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetCircuit(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdateCircuit(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteCircuit(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListCircuits 分页查询输出回路
func (h *CircuitHandler) ListCircuits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.CircuitFilters{
		NacBoardID: q.Get("nac_board_id"),
		ZoneID:     q.Get("zone_id"),
		Status:     q.Get("status"),
	}
	resp, err := h.circuits.ListCircuits(r.Context(), filters, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 50))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]any, 0, len(resp.Circuits))
	for _, c := range resp.Circuits {
		items = append(items, c.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
		"page":  resp.Page,
		"size":  resp.Size,
	}))
}

// CreateCircuit 创建输出回路
func (h *CircuitHandler) CreateCircuit(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.CreateCircuitRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	circuit, err := h.circuits.CreateCircuit(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(circuit.ToJSON()))
}

// GetCircuit 查询单个输出回路
func (h *CircuitHandler) GetCircuit(w http.ResponseWriter, r *http.Request, circuitID string) {
	circuit, err := h.circuits.GetCircuit(r.Context(), circuitID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(circuit.ToJSON()))
}

// UpdateCircuit 更新输出回路配置
func (h *CircuitHandler) UpdateCircuit(w http.ResponseWriter, r *http.Request, circuitID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	var req service.UpdateCircuitRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.CircuitID = circuitID
	circuit, err := h.circuits.UpdateCircuit(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(circuit.ToJSON()))
}

// ActivateCircuit 启用输出回路
func (h *CircuitHandler) ActivateCircuit(w http.ResponseWriter, r *http.Request, circuitID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	circuit, err := h.engine.ActivateCircuit(r.Context(), circuitID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(circuit.ToJSON()))
}

// DeactivateCircuit 停用输出回路
func (h *CircuitHandler) DeactivateCircuit(w http.ResponseWriter, r *http.Request, circuitID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	circuit, err := h.engine.DeactivateCircuit(r.Context(), circuitID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(circuit.ToJSON()))
}

// DeleteCircuit 删除输出回路
func (h *CircuitHandler) DeleteCircuit(w http.ResponseWriter, r *http.Request, circuitID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator); !ok {
		return
	}
	if err := h.circuits.DeleteCircuit(r.Context(), circuitID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
