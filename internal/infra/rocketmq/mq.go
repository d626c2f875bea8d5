package rocketmq

import (
	"context"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"casino-server/common/logger"
	"casino-server/internal/config"

	"go.uber.org/zap"
)

// Publisher is a minimal facade for sending messages.
type Publisher interface {
	Publish(topic string, body []byte) error
}

var (
	initOnce sync.Once
	enabled  bool
	prod     rmq.Producer
	pub      Publisher
)

// Enabled reports whether MQ is configured and producer started.
func Enabled() bool { initOnce.Do(initMQ); return enabled }

// PublisherInstance returns the active publisher (stub if disabled).
func PublisherInstance() Publisher {
	initOnce.Do(initMQ)
	if pub == nil {
		pub = &stubPublisher{}
	}
	return pub
}

// Real publisher backed by RocketMQ v5 client.
type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(topic string, body []byte) error {
	if r.p == nil {
		return nil
	}
	msg := &rmq.Message{Topic: topic, Body: body}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.p.Send(ctx, msg)
	return err
}

// Stub publisher used when MQ is disabled.
type stubPublisher struct{}

func (s *stubPublisher) Publish(topic string, body []byte) error {
	logger.Warn("[mq disabled] drop message", zap.String("topic", topic))
	return nil
}

func initMQ() {
	// Use SDK's ResetLogger to avoid default file-based logging under /logs
	rmq.ResetLogger()

	cfg := config.GetCurrent()
	if cfg == nil || !cfg.RocketMQ.Enabled || cfg.RocketMQ.Endpoint == "" {
		enabled = false
		pub = &stubPublisher{}
		return
	}

	// sanitize endpoint: trim, strip scheme, pick first if contains ',' or ';'
	endpoint := strings.TrimSpace(cfg.RocketMQ.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}

	ak := strings.TrimSpace(cfg.RocketMQ.AccessKey)
	sk := strings.TrimSpace(cfg.RocketMQ.SecretKey)

	// 安全起见：若缺少凭证则禁用 MQ（避免底层 SDK 在 Sign 阶段空指针崩溃）
	if ak == "" || sk == "" {
		enabled = false
		pub = &stubPublisher{}
		logger.Warn("rocketmq disabled: missing access/secret key while endpoint present")
		return
	}

	mqCfg := &rmq.Config{Endpoint: endpoint}
	mqCfg.Credentials = &credentials.SessionCredentials{AccessKey: ak, AccessSecret: sk}

	var opts []rmq.ProducerOption
	if topic := strings.TrimSpace(cfg.RocketMQ.TopicEvents); topic != "" {
		opts = append(opts, rmq.WithTopics(strings.ReplaceAll(topic, ".", "_")))
	}

	p, err := rmq.NewProducer(mqCfg, opts...)
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		enabled = false
		pub = &stubPublisher{}
		return
	}

	// 使用 goroutine 异步启动，避免阻塞主流程
	startDone := make(chan error, 1)
	go func() {
		startDone <- p.Start()
	}()

	select {
	case err := <-startDone:
		if err != nil {
			logger.Warn("rocketmq: producer start failed (will use stub publisher)", zap.Error(err))
			enabled = false
			pub = &stubPublisher{}
			return
		}
	case <-time.After(2 * time.Second):
		logger.Warn("rocketmq: producer start timed out (will use stub publisher)")
		enabled = false
		pub = &stubPublisher{}
		return
	}

	prod = p
	pub = &rmqPublisher{p: p}
	enabled = true
	logger.Info("rocketmq producer started", zap.String("endpoint", endpoint))
}

// Shutdown 优雅关闭 producer
func Shutdown() {
	if prod != nil {
		_ = prod.GracefulStop()
	}
}
