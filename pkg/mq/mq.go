package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher RabbitMQ 发布者：长连接，断开后在下一次发布时重连
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher 创建发布者（不立即建立连接）
func NewPublisher(url, queue string, logger *zap.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, logger: logger}
}

// Queue 返回目标队列名
func (p *Publisher) Queue() string { return p.queue }

// Publish 以持久化消息投递到默认交换机，routing key 即队列名
func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		// 通道失效后下次重建
		p.reset()
		return fmt.Errorf("消息发布失败: %w", err)
	}
	return nil
}

func (p *Publisher) ensureChannel() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("打开通道失败: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("声明队列失败: %w", err)
	}

	p.conn, p.ch = conn, ch
	p.logger.Info("RabbitMQ 发布通道就绪", zap.String("queue", p.queue))
	return nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close 关闭连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// ── 消费者 ──

// HandlerFunc 消息处理函数；返回错误时消息被拒绝且不重新入队
type HandlerFunc func(ctx context.Context, body []byte) error

// Consume 持续消费队列，连接断开后指数退避重连，直到 ctx 取消
func Consume(ctx context.Context, url, queue string, prefetch int, handle HandlerFunc, logger *zap.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("连接 RabbitMQ 失败，稍后重试", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, prefetch, handle, logger)
		_ = conn.Close()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("消费循环结束，准备重连", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, prefetch int, handle HandlerFunc, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("打开通道失败: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			logger.Warn("设置 QoS 失败", zap.Error(err))
		}
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("订阅队列失败: %w", err)
	}

	logger.Info("开始消费队列", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("投递通道已关闭")
			}
			if err := handle(ctx, d.Body); err != nil {
				logger.Error("消息处理失败", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
