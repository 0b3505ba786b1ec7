package oracle

import (
	"log/slog"

	"LicenseOracle-TON/pkg/logger"
)

// Verdict 表示裁决结果。
type Verdict string

const (
	VerdictValid      Verdict = "Valid"
	VerdictInvalid    Verdict = "Invalid"
	VerdictExpired    Verdict = "Expired"
	VerdictProcessing Verdict = "Processing"
)

// Code 返回写入账本消息时使用的单字节结果码。
func (v Verdict) Code() uint8 {
	switch v {
	case VerdictValid:
		return 1
	case VerdictExpired:
		return 2
	case VerdictInvalid:
		return 3
	default:
		return 0
	}
}

// Oracle 以纯函数的方式裁决证件号。
type Oracle struct {
	log *slog.Logger
}

// New 创建 Oracle。
func New() *Oracle {
	return &Oracle{log: logger.Named("oracle")}
}

// Verify 是本仓库唯一的裁决规则：取证件号中的所有十进制数字求和，
// 无数字则为 Invalid；否则按 sum mod 5 判定，{0,1,4} 为 Valid、
// 2 为 Expired、3 为 Invalid。同一输入在任何时刻得到同一结果。
func (o *Oracle) Verify(documentNumber string) Verdict {
	sum := 0
	found := false
	for _, r := range documentNumber {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
			found = true
		}
	}

	verdict := VerdictInvalid
	if found {
		switch sum % 5 {
		case 0, 1, 4:
			verdict = VerdictValid
		case 2:
			verdict = VerdictExpired
		case 3:
			verdict = VerdictInvalid
		}
	}

	if o.log != nil {
		o.log.Debug("document adjudicated",
			slog.String("document", documentNumber),
			slog.Int("digit_sum", sum),
			slog.String("verdict", string(verdict)))
	}
	return verdict
}
