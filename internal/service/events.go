package service

import (
	"database/sql"
	"time"

	"firewatch-data/internal/domain"
)

// newEvent 构造事件记录骨架，时间戳取当前时间
func newEvent(eventType, status, sourceType, sourceID, description string) *domain.EventLog {
	return &domain.EventLog{
		Timestamp:   time.Now(),
		EventType:   eventType,
		Description: description,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Status:      status,
	}
}

// nullStr 把非空字符串包装为 sql.NullString
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// normalizePage 分页参数兜底：页码至少 1，页大小 1~200，默认 50
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	return page, size
}
