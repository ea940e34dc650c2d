package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/repository"
	"firewatch-data/internal/service"
)

const panelsPrefix = "/api/v1/panels"

// PanelHandler 控制盘管理 Handler
type PanelHandler struct {
	panels *service.PanelService
	boards *service.BoardService
	logger *zap.Logger
}

// NewPanelHandler 创建控制盘 Handler
func NewPanelHandler(panels *service.PanelService, boards *service.BoardService, logger *zap.Logger) *PanelHandler {
	return &PanelHandler{
		panels: panels,
		boards: boards,
		logger: logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *PanelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, panelsPrefix)
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.ListPanels(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.CreatePanel(w, r)
	case strings.HasSuffix(rest, "/heartbeat") && r.Method == http.MethodGet:
		h.GetHeartbeat(w, r, strings.TrimSuffix(rest, "/heartbeat"))
	case strings.HasSuffix(rest, "/falc-boards") && r.Method == http.MethodGet:
		h.ListFalcBoards(w, r, strings.TrimSuffix(rest, "/falc-boards"))
	case strings.HasSuffix(rest, "/nac-boards") && r.Method == http.MethodGet:
		h.ListNacBoards(w, r, strings.TrimSuffix(rest, "/nac-boards"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetPanel(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdatePanel(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeletePanel(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListPanels 分页查询控制盘
func (h *PanelHandler) ListPanels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.PanelFilters{
		PanelType: q.Get("panel_type"),
		Status:    q.Get("status"),
		Search:    q.Get("search"),
	}
	resp, err := h.panels.ListPanels(r.Context(), filters, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 50))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]any, 0, len(resp.Panels))
	for _, p := range resp.Panels {
		items = append(items, p.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
		"page":  resp.Page,
		"size":  resp.Size,
	}))
}

// CreatePanel 创建控制盘
func (h *PanelHandler) CreatePanel(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var req service.CreatePanelRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	panel, err := h.panels.CreatePanel(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(panel.ToJSON()))
}

// GetPanel 查询单个控制盘
func (h *PanelHandler) GetPanel(w http.ResponseWriter, r *http.Request, panelID string) {
	panel, err := h.panels.GetPanel(r.Context(), panelID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(panel.ToJSON()))
}

// UpdatePanel 更新控制盘
func (h *PanelHandler) UpdatePanel(w http.ResponseWriter, r *http.Request, panelID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var req service.UpdatePanelRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.PanelID = panelID
	panel, err := h.panels.UpdatePanel(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(panel.ToJSON()))
}

// DeletePanel 删除控制盘
func (h *PanelHandler) DeletePanel(w http.ResponseWriter, r *http.Request, panelID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	if err := h.panels.DeletePanel(r.Context(), panelID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// GetHeartbeat 查询控制盘心跳快照
func (h *PanelHandler) GetHeartbeat(w http.ResponseWriter, r *http.Request, panelID string) {
	snapshot, err := h.panels.GetHeartbeat(r.Context(), panelID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snapshot))
}

// ListFalcBoards 查询控制盘下的探测回路板
func (h *PanelHandler) ListFalcBoards(w http.ResponseWriter, r *http.Request, panelID string) {
	boards, err := h.boards.ListFalcBoards(r.Context(), panelID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]any, 0, len(boards))
	for _, b := range boards {
		items = append(items, b.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// ListNacBoards 查询控制盘下的声光输出板
func (h *PanelHandler) ListNacBoards(w http.ResponseWriter, r *http.Request, panelID string) {
	boards, err := h.boards.ListNacBoards(r.Context(), panelID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]any, 0, len(boards))
	for _, b := range boards {
		items = append(items, b.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
