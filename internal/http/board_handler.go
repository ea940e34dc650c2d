package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"firewatch-data/internal/service"
)

const (
	falcBoardsPrefix = "/api/v1/falc-boards"
	nacBoardsPrefix  = "/api/v1/nac-boards"
)

// BoardHandler 回路板管理 Handler（FALC + NAC）
type BoardHandler struct {
	boards *service.BoardService
	logger *zap.Logger
}

// NewBoardHandler 创建回路板 Handler
func NewBoardHandler(boards *service.BoardService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, logger: logger}
}

// setActivePayload 启停请求体
type setActivePayload struct {
	IsActive *bool `json:"is_active"`
}

// ServeHTTP 实现 http.Handler 接口
func (h *BoardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, falcBoardsPrefix):
		h.serveFalc(w, r, strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, falcBoardsPrefix), "/"))
	case strings.HasPrefix(r.URL.Path, nacBoardsPrefix):
		h.serveNac(w, r, strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, nacBoardsPrefix), "/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *BoardHandler) serveFalc(w http.ResponseWriter, r *http.Request, rest string) {
	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.CreateFalcBoard(w, r)
	case strings.HasSuffix(rest, "/active") && r.Method == http.MethodPut:
		h.SetFalcBoardActive(w, r, strings.TrimSuffix(rest, "/active"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetFalcBoard(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdateFalcBoard(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteFalcBoard(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *BoardHandler) serveNac(w http.ResponseWriter, r *http.Request, rest string) {
	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.CreateNacBoard(w, r)
	case strings.HasSuffix(rest, "/active") && r.Method == http.MethodPut:
		h.SetNacBoardActive(w, r, strings.TrimSuffix(rest, "/active"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetNacBoard(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdateNacBoard(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteNacBoard(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// CreateFalcBoard 创建探测回路板
func (h *BoardHandler) CreateFalcBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var req service.CreateFalcBoardRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	board, err := h.boards.CreateFalcBoard(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(board.ToJSON()))
}

// GetFalcBoard 查询单个探测回路板
func (h *BoardHandler) GetFalcBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	board, err := h.boards.GetFalcBoard(r.Context(), boardID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(board.ToJSON()))
}

// UpdateFalcBoard 更新探测回路板
func (h *BoardHandler) UpdateFalcBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var req service.UpdateFalcBoardRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.BoardID = boardID
	board, err := h.boards.UpdateFalcBoard(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(board.ToJSON()))
}

// SetFalcBoardActive 启停探测回路板
func (h *BoardHandler) SetFalcBoardActive(w http.ResponseWriter, r *http.Request, boardID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var payload setActivePayload
	if err := readBodyJSON(r, &payload); err != nil || payload.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, Fail("is_active is required"))
		return
	}
	board, err := h.boards.SetFalcBoardActive(r.Context(), boardID, *payload.IsActive)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(board.ToJSON()))
}

// DeleteFalcBoard 删除探测回路板
func (h *BoardHandler) DeleteFalcBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	if err := h.boards.DeleteFalcBoard(r.Context(), boardID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// CreateNacBoard 创建声光输出板
func (h *BoardHandler) CreateNacBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var req service.CreateNacBoardRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	board, err := h.boards.CreateNacBoard(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(board.ToJSON()))
}

// GetNacBoard 查询单个声光输出板
func (h *BoardHandler) GetNacBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	board, err := h.boards.GetNacBoard(r.Context(), boardID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(board.ToJSON()))
}

// UpdateNacBoard 更新声光输出板
func (h *BoardHandler) UpdateNacBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var req service.UpdateNacBoardRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.BoardID = boardID
	board, err := h.boards.UpdateNacBoard(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(board.ToJSON()))
}

// SetNacBoardActive 启停声光输出板
func (h *BoardHandler) SetNacBoardActive(w http.ResponseWriter, r *http.Request, boardID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	var payload setActivePayload
	if err := readBodyJSON(r, &payload); err != nil || payload.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, Fail("is_active is required"))
		return
	}
	board, err := h.boards.SetNacBoardActive(r.Context(), boardID, *payload.IsActive)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(board.ToJSON()))
}

// DeleteNacBoard 删除声光输出板
func (h *BoardHandler) DeleteNacBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	if _, ok := requireRole(w, r, h.logger, RoleAdmin); !ok {
		return
	}
	if err := h.boards.DeleteNacBoard(r.Context(), boardID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
