package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"firewatch-data/internal/config"
	"firewatch-data/internal/domain"
)

// Publisher 报警事件 MQTT 发布器
// 监控大屏与第三方联动系统订阅该主题获取实时报警
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewPublisher 创建 MQTT 发布器并连接 broker
func NewPublisher(cfg *config.MQTTConfig, logger *zap.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("mqtt publisher connected",
		zap.String("broker", cfg.Broker),
		zap.String("topic", cfg.Topic))
	return &Publisher{
		client: client,
		topic:  cfg.Topic,
		logger: logger,
	}, nil
}

// Name 通知通道名
func (p *Publisher) Name() string {
	return "mqtt"
}

// NotifyEvent 把事件以 JSON 发布到报警主题（QoS 1）
func (p *Publisher) NotifyEvent(ctx context.Context, event *domain.EventLog) error {
	payload, err := json.Marshal(event.ToJSON())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", p.topic, token.Error())
	}
	return nil
}

// Close 断开 MQTT 连接
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
