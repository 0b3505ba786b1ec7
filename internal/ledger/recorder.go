package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"LicenseOracle-TON/internal/license"
	"LicenseOracle-TON/pkg/logger"
)

const (
	defaultConfirmWindow   = 60 * time.Second
	defaultConfirmInterval = 2 * time.Second
)

// errNotConfirmed 表示序列号尚未前进，留给下一个轮询周期。
var errNotConfirmed = errors.New("序列号尚未前进")

// Recorder 把验证记录写入账本并在有限窗口内等待确认。任何传输或钱包错误
// 都以空引用收场，绝不向调用方抛出异常；是否拒绝该结果由调用方决定。
type Recorder struct {
	client   Client
	receiver string
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	timer    backoff.Timer
	log      *slog.Logger
}

// RecorderOption 定义可选配置。
type RecorderOption func(*Recorder)

// WithReceiver 覆盖默认接收账户。
func WithReceiver(address string) RecorderOption {
	return func(r *Recorder) {
		if address != "" {
			r.receiver = address
		}
	}
}

// WithConfirmWindow 设置确认轮询的总窗口与间隔。
func WithConfirmWindow(window, interval time.Duration) RecorderOption {
	return func(r *Recorder) {
		if window > 0 {
			r.window = window
		}
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithRecorderClock 注入时钟，测试用。
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorderTimer 注入轮询计时器，测试用。
func WithRecorderTimer(timer backoff.Timer) RecorderOption {
	return func(r *Recorder) {
		r.timer = timer
	}
}

// NewRecorder 创建 Recorder。client 为 nil 表示演示模式：Record 同步返回
// 空引用，不发起任何网络调用。
func NewRecorder(client Client, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		client:   client,
		receiver: DefaultReceiver,
		window:   defaultConfirmWindow,
		interval: defaultConfirmInterval,
		now:      time.Now,
		log:      logger.Named("ledger"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record 提交一条验证记录并返回确认后的交易哈希。失败或超时返回空串。
func (r *Recorder) Record(ctx context.Context, record license.Record) string {
	if r.client == nil {
		r.log.Info("ledger not configured, running in demo mode",
			slog.String("requester", record.RequesterID))
		return ""
	}

	submissionID := uuid.NewString()
	log := r.log.With(slog.String("submission_id", submissionID))

	payload, err := r.buildPayload(record)
	if err != nil {
		log.Warn("payload construction failed", slog.String("error", err.Error()))
		return ""
	}

	before, err := r.client.Sequence(ctx)
	if err != nil {
		log.Warn("sequence read failed", slog.String("error", err.Error()))
		return ""
	}

	transfer := Transfer{To: r.receiver, Amount: TransferAmount, Payload: payload}
	if err := r.client.Submit(ctx, transfer); err != nil {
		log.Warn("submission failed", slog.String("error", err.Error()))
		return ""
	}
	log.Info("transfer submitted", slog.Uint64("sequence", before))

	reference := r.awaitConfirmation(ctx, log, before)
	if reference == "" {
		log.Warn("confirmation window elapsed without sequence advance")
		return ""
	}
	log.Info("transaction confirmed", slog.String("reference", reference))
	return reference
}

// buildPayload 组装应用层负载：操作码、指纹前 32 字节（原始字节而非十六进
// 制文本）、单字节结果码、64 位毫秒时间与请求者标识结尾串。
func (r *Recorder) buildPayload(record license.Record) (Payload, error) {
	raw, err := hex.DecodeString(record.Fingerprint)
	if err != nil {
		return Payload{}, err
	}
	if len(raw) < 32 {
		return Payload{}, errors.New("指纹长度不足 32 字节")
	}

	payload := Payload{
		Op:          OpLicenseVerification,
		VerdictCode: record.Verdict.Code(),
		UnixMilli:   uint64(r.now().UnixMilli()),
		RequesterID: record.RequesterID,
	}
	copy(payload.Digest[:], raw[:32])
	return payload, nil
}

// awaitConfirmation 以固定间隔轮询序列号，严格大于提交前的值才算确认。
// 单个轮询周期内的临时错误被吞掉并在下一周期重试，直到窗口耗尽。
func (r *Recorder) awaitConfirmation(ctx context.Context, log *slog.Logger, before uint64) string {
	waitCtx, cancel := context.WithTimeout(ctx, r.window)
	defer cancel()

	var reference string
	operation := func() error {
		current, err := r.client.Sequence(waitCtx)
		if err != nil {
			log.Debug("sequence poll failed", slog.String("error", err.Error()))
			return err
		}
		if current <= before {
			return errNotConfirmed
		}
		log.Debug("sequence advanced",
			slog.Uint64("before", before), slog.Uint64("current", current))

		transactions, err := r.client.RecentTransactions(waitCtx, 10)
		if err != nil {
			return err
		}
		reference = pickTransaction(transactions)
		if reference == "" {
			return errNotConfirmed
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(r.interval), waitCtx)
	var err error
	if r.timer != nil {
		err = backoff.RetryNotifyWithTimer(operation, policy, nil, r.timer)
	} else {
		err = backoff.Retry(operation, policy)
	}
	if err != nil {
		return ""
	}
	return reference
}

// pickTransaction 优先选择携带内部类型入站消息的交易，否则退回最新一条。
func pickTransaction(transactions []Transaction) string {
	for _, tx := range transactions {
		if tx.Internal {
			return tx.Hash
		}
	}
	if len(transactions) > 0 {
		return transactions[0].Hash
	}
	return ""
}
