package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类
// 校验类错误由持有不变式的组件同步返回，Internal 记录完整上下文后对外不透明
type Kind int

const (
	// KindInvalidArgument - 400: 参数格式错误、缺少必填字段、超出取值范围、枚举值非法.
	KindInvalidArgument Kind = iota + 1
	// KindNotFound - 404: 引用的实体 id 不存在.
	KindNotFound
	// KindDependencyExists - 400: 删除被下级引用阻止（子区域/探测器/回路/板卡/子盘）.
	KindDependencyExists
	// KindDuplicateKey - 409: 唯一约束冲突（名称/IP/地址/回路号）.
	KindDuplicateKey
	// KindInternal - 500: 持久化或内部逻辑失败.
	KindInternal
)

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error // 底层错误（可选）
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建指定分类的错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf 创建指定分类的错误（格式化消息）
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并指定分类
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal 包装持久化/内部失败（对外消息不暴露底层细节）
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf 提取错误分类，非 *Error 一律视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 错误分类到 HTTP 状态码的映射
// InvalidArgument/DependencyExists → 400, NotFound → 404, DuplicateKey → 409, Internal → 500
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument, KindDependencyExists:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateKey:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsKind 判断错误是否为指定分类
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
