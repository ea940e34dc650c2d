package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"firewatch-data/internal/service"
)

// DashboardHandler 监控大屏汇总 Handler
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandler 创建汇总 Handler
func NewDashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// GetOverview 系统总览
func (h *DashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.dashboard.GetOverview(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(overview))
}

// GetRecentEvents 最近事件
func (h *DashboardHandler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	logs, err := h.dashboard.RecentEvents(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]any, 0, len(logs))
	for _, e := range logs {
		items = append(items, e.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
