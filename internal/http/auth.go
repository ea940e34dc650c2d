package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Role 调用方角色，由网关在转发时注入请求头
type Role int

const (
	RoleAdmin      Role = 1 // 系统管理员：全部操作
	RoleOperator   Role = 2 // 值班员：分区与末端设备管理、事件确认
	RoleMaintainer Role = 3 // 维保员：只读
)

const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

// Identity 请求身份
type Identity struct {
	UserID string
	Role   Role
}

// identityFromReq 从请求头提取身份；头缺失或非法返回 nil
func identityFromReq(r *http.Request) *Identity {
	userID := r.Header.Get(headerUserID)
	roleStr := r.Header.Get(headerUserRole)
	if userID == "" || roleStr == "" {
		return nil
	}
	role, err := strconv.Atoi(roleStr)
	if err != nil {
		return nil
	}
	switch Role(role) {
	case RoleAdmin, RoleOperator, RoleMaintainer:
		return &Identity{UserID: userID, Role: Role(role)}
	}
	return nil
}

// requireRole 校验调用方角色
// 身份缺失回 401，角色不符回 403；不通过时响应已写出，调用方直接 return
func requireRole(w http.ResponseWriter, r *http.Request, logger *zap.Logger, allowed ...Role) (*Identity, bool) {
	identity := identityFromReq(r)
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, Fail("missing or invalid identity headers"))
		return nil, false
	}
	for _, role := range allowed {
		if identity.Role == role {
			return identity, true
		}
	}
	logger.Warn("role not allowed",
		zap.String("user_id", identity.UserID),
		zap.Int("role", int(identity.Role)),
		zap.String("path", r.URL.Path))
	writeJSON(w, http.StatusForbidden, Fail("role not allowed for this operation"))
	return nil, false
}
