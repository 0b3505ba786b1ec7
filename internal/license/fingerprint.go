package license

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"LicenseOracle-TON/pkg/logger"
)

// FingerprintGenerator 由 (证件号, 请求者, 钱包地址) 加当前毫秒时间戳派生
// 指纹。时间盐意味着同一证件在不同时刻重新提交会得到不同指纹。
type FingerprintGenerator struct {
	now func() time.Time
	log *slog.Logger
}

// FingerprintOption 定义可选配置。
type FingerprintOption func(*FingerprintGenerator)

// WithFingerprintClock 注入时钟，测试用。
func WithFingerprintClock(now func() time.Time) FingerprintOption {
	return func(g *FingerprintGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewFingerprintGenerator 创建指纹生成器。
func NewFingerprintGenerator(opts ...FingerprintOption) *FingerprintGenerator {
	g := &FingerprintGenerator{
		now: time.Now,
		log: logger.Named("fingerprint"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Generate 返回小写十六进制的 SHA-256 摘要，总是 64 个字符，永不失败。
// 日志只读取输入，绝不参与摘要计算。
func (g *FingerprintGenerator) Generate(documentNumber, requesterID, walletAddress string) string {
	stamp := g.now().UnixMilli()
	data := fmt.Sprintf("%s_%s_%s_%d", documentNumber, requesterID, walletAddress, stamp)
	sum := sha256.Sum256([]byte(data))
	digest := hex.EncodeToString(sum[:])

	if g.log != nil {
		g.log.Debug("fingerprint generated",
			slog.String("document", documentNumber),
			slog.String("requester", requesterID),
			slog.Int64("stamp_ms", stamp),
			slog.String("digest", digest))
	}
	return digest
}
