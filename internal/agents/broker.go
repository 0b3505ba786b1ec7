package agents

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"LicenseOracle-TON/pkg/logger"
)

const (
	defaultReplyTimeout = 120 * time.Second
	defaultPollInterval = 5 * time.Second

	// 允许智能体在发问前的短暂窗口内已开始作答。
	replyBuffer = 30 * time.Second
	// 兜底窗口：轮询期内没有新消息时，接受最近五分钟内的答复。
	fallbackWindow = 5 * time.Minute
)

// Platform 抽象 Broker 依赖的会话接口，便于注入测试替身。
type Platform interface {
	SendMessage(ctx context.Context, agentID int64, text string) (*SendResult, error)
	ListMessages(ctx context.Context, agentID int64) ([]Message, error)
}

// errNoReply 表示本轮询周期内还没有合格的答复。
var errNoReply = errors.New("尚无答复")

// Broker 负责一次完整的问答交换：投递问题，然后在有限窗口内轮询
// 会话历史，直到拿到智能体的答复或超时。
type Broker struct {
	platform Platform
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	timer    backoff.Timer
	log      *slog.Logger
}

// BrokerOption 定义可选配置。
type BrokerOption func(*Broker)

// WithReplyWindow 设置答复等待的总窗口与轮询间隔。
func WithReplyWindow(timeout, interval time.Duration) BrokerOption {
	return func(b *Broker) {
		if timeout > 0 {
			b.timeout = timeout
		}
		if interval > 0 {
			b.interval = interval
		}
	}
}

// WithBrokerClock 注入时钟，测试用。
func WithBrokerClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBrokerTimer 注入轮询计时器，测试用。
func WithBrokerTimer(timer backoff.Timer) BrokerOption {
	return func(b *Broker) {
		b.timer = timer
	}
}

// NewBroker 创建 Broker。
func NewBroker(platform Platform, opts ...BrokerOption) *Broker {
	b := &Broker{
		platform: platform,
		timeout:  defaultReplyTimeout,
		interval: defaultPollInterval,
		now:      time.Now,
		log:      logger.Named("agents.broker"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Ask 把问题投递给指定智能体并等待答复。返回答复文本与是否拿到答复；
// 超时不是错误，返回 ("", false, nil)，由调用方决定兜底话术。
func (b *Broker) Ask(ctx context.Context, agentID int64, question string) (string, bool, error) {
	log := b.log.With(slog.Int64("agent_id", agentID))

	result, err := b.platform.SendMessage(ctx, agentID, question)
	if err != nil {
		return "", false, err
	}

	// 部分平台在投递响应里直接携带答复文本，省去轮询。
	if result != nil {
		if text := strings.TrimSpace(result.Text); text != "" {
			log.Info("reply arrived with the delivery response")
			return text, true, nil
		}
	}

	start := b.now()
	log.Info("polling for agent reply",
		slog.Duration("timeout", b.timeout), slog.Duration("interval", b.interval))

	waitCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reply string
	attempts := 0
	operation := func() error {
		attempts++
		messages, err := b.platform.ListMessages(waitCtx, agentID)
		if err != nil {
			// 单个周期的失败不终止等待，下一周期重试。
			log.Debug("message poll failed",
				slog.Int("attempt", attempts), slog.String("error", err.Error()))
			return errNoReply
		}

		if text, ok := b.pickReply(messages, start); ok {
			reply = text
			return nil
		}
		return errNoReply
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(b.interval), waitCtx)
	if b.timer != nil {
		err = backoff.RetryNotifyWithTimer(operation, policy, nil, b.timer)
	} else {
		err = backoff.Retry(operation, policy)
	}
	if err != nil {
		log.Warn("reply window elapsed", slog.Int("attempts", attempts))
		return "", false, nil
	}

	log.Info("agent reply received", slog.Int("attempts", attempts))
	return reply, true, nil
}

// pickReply 在消息历史中选取合格答复：优先取发问之后（含缓冲）产生的
// 最新智能体消息，否则兜底取最近五分钟内的最新一条。
func (b *Broker) pickReply(messages []Message, start time.Time) (string, bool) {
	cutoff := start.Add(-replyBuffer)
	var fresh, fallback *Message
	fallbackCutoff := b.now().Add(-fallbackWindow)

	for i := range messages {
		msg := &messages[i]
		if msg.Author != "agent" || strings.TrimSpace(msg.Text) == "" {
			continue
		}
		if msg.CreatedAt.After(cutoff) {
			if fresh == nil || msg.CreatedAt.After(fresh.CreatedAt) {
				fresh = msg
			}
		}
		if msg.CreatedAt.After(fallbackCutoff) {
			if fallback == nil || msg.CreatedAt.After(fallback.CreatedAt) {
				fallback = msg
			}
		}
	}

	if fresh != nil {
		return fresh.Text, true
	}
	if fallback != nil {
		b.log.Debug("using fallback reply from recent history")
		return fallback.Text, true
	}
	return "", false
}
