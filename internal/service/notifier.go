package service

import (
	"context"

	"firewatch-data/internal/domain"
)

// Notifier 报警事件对外通知通道（webhook、MQTT 等）
type Notifier interface {
	NotifyEvent(ctx context.Context, event *domain.EventLog) error
	Name() string
}
