package service

import (
	"github.com/google/uuid"

	"firewatch-data/internal/apperr"
)

// ValidateID 校验实体 id 格式（UUID）
// 格式非法与空值都在查库前拦截
func ValidateID(id, field string) error {
	if id == "" {
		return apperr.Newf(apperr.KindInvalidArgument, "%s is required", field)
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Newf(apperr.KindInvalidArgument, "invalid %s: %s", field, id)
	}
	return nil
}
