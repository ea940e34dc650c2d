package service

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"firewatch-data/internal/config"
	"firewatch-data/internal/domain"
)

// WebhookNotifier 报警事件 webhook 通知器
// 把事件 POST 到外部值班系统配置的回调地址
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier 创建 webhook 通知器
func NewWebhookNotifier(cfg *config.WebhookConfig, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        cfg.URL,
		logger:     logger,
	}
}

// Name 通知通道名
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// NotifyEvent 推送单条事件
func (n *WebhookNotifier) NotifyEvent(ctx context.Context, event *domain.EventLog) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(event.ToJSON()).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post event webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug("event webhook delivered",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType))
	return nil
}
