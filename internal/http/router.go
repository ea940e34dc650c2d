package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes 注册全部业务路由
func (r *Router) RegisterRoutes(
	panels *PanelHandler,
	zones *ZoneHandler,
	boards *BoardHandler,
	detectors *DetectorHandler,
	circuits *CircuitHandler,
	events *EventLogHandler,
	dashboard *DashboardHandler,
) {
	r.HandleHandler(panelsPrefix, panels)
	r.HandleHandler(panelsPrefix+"/", panels)

	r.HandleHandler(zonesPrefix, zones)
	r.HandleHandler(zonesPrefix+"/", zones)

	r.HandleHandler(falcBoardsPrefix, boards)
	r.HandleHandler(falcBoardsPrefix+"/", boards)
	r.HandleHandler(nacBoardsPrefix, boards)
	r.HandleHandler(nacBoardsPrefix+"/", boards)

	r.HandleHandler(detectorsPrefix, detectors)
	r.HandleHandler(detectorsPrefix+"/", detectors)

	r.HandleHandler(circuitsPrefix, circuits)
	r.HandleHandler(circuitsPrefix+"/", circuits)

	r.HandleHandler(eventLogsPrefix, events)
	r.HandleHandler(eventLogsPrefix+"/", events)

	r.Handle("/api/v1/dashboard/overview", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		dashboard.GetOverview(w, req)
	})
	r.Handle("/api/v1/dashboard/recent-events", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		dashboard.GetRecentEvents(w, req)
	})

	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
