package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"firewatch-data/internal/service"
)

const eventLogsPrefix = "/api/v1/event-logs"

// eventExportLimit 导出最大行数
const eventExportLimit = 10000

// EventLogHandler 事件日志 Handler
type EventLogHandler struct {
	events *service.EventLogService
	logger *zap.Logger
}

// NewEventLogHandler 创建事件日志 Handler
func NewEventLogHandler(events *service.EventLogService, logger *zap.Logger) *EventLogHandler {
	return &EventLogHandler{events: events, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *EventLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, eventLogsPrefix)
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.ListEventLogs(w, r)
	case rest == "export" && r.Method == http.MethodGet:
		h.ExportEventLogs(w, r)
	case strings.HasSuffix(rest, "/acknowledge") && r.Method == http.MethodPost:
		h.AcknowledgeEventLog(w, r, strings.TrimSuffix(rest, "/acknowledge"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetEventLog(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// listRequestFromQuery 从查询串组装查询请求
func listRequestFromQuery(r *http.Request) *service.ListEventLogsRequest {
	q := r.URL.Query()
	return &service.ListEventLogsRequest{
		EventType:  q.Get("event_type"),
		ZoneID:     q.Get("zone_id"),
		PanelID:    q.Get("panel_id"),
		SourceType: q.Get("source_type"),
		Status:     q.Get("status"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		Page:       parseInt(q.Get("page"), 1),
		Size:       parseInt(q.Get("size"), 50),
		SortAsc:    q.Get("sort") == "asc",
	}
}

// ListEventLogs 分页查询事件日志
func (h *EventLogHandler) ListEventLogs(w http.ResponseWriter, r *http.Request) {
	resp, err := h.events.List(r.Context(), listRequestFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]any, 0, len(resp.EventLogs))
	for _, e := range resp.EventLogs {
		items = append(items, e.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
		"page":  resp.Page,
		"size":  resp.Size,
	}))
}

// ExportEventLogs 按当前过滤条件导出 Excel
func (h *EventLogHandler) ExportEventLogs(w http.ResponseWriter, r *http.Request) {
	req := listRequestFromQuery(r)
	req.Page = 1
	req.Size = eventExportLimit

	resp, err := h.events.List(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := GenerateEventLogExport(resp.EventLogs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("event-logs-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetEventLog 查询单条事件日志
func (h *EventLogHandler) GetEventLog(w http.ResponseWriter, r *http.Request, eventID string) {
	event, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(event.ToJSON()))
}

// AcknowledgeEventLog 确认事件
// 确认人优先取请求体，缺省落到请求身份
func (h *EventLogHandler) AcknowledgeEventLog(w http.ResponseWriter, r *http.Request, eventID string) {
	identity, ok := requireRole(w, r, h.logger, RoleAdmin, RoleOperator)
	if !ok {
		return
	}
	var payload struct {
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	if err := readBodyJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.AcknowledgedBy == "" {
		payload.AcknowledgedBy = identity.UserID
	}

	event, err := h.events.Acknowledge(r.Context(), &service.AcknowledgeEventLogRequest{
		EventID:        eventID,
		AcknowledgedBy: payload.AcknowledgedBy,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(event.ToJSON()))
}
