package license

import (
	"regexp"

	"LicenseOracle-TON/internal/oracle"
)

// Record 是一次证件验证的最终结果，每个请求者只保留最新一条。
type Record struct {
	RequesterID     string         `json:"requester_id"`
	WalletAddress   string         `json:"wallet_address"`
	DocumentNumber  string         `json:"document_number"`
	Fingerprint     string         `json:"fingerprint"`
	Verdict         oracle.Verdict `json:"verdict"`
	LedgerReference string         `json:"ledger_reference,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// Recorded 报告该记录是否带有已确认的账本引用。
func (r Record) Recorded() bool {
	return r.LedgerReference != ""
}

// walletPattern 匹配 TON 用户友好地址：两位标志前缀加 46 位 base64url 正文。
var walletPattern = regexp.MustCompile(`^(EQ|UQ|0Q)[A-Za-z0-9_-]{46}$`)

// IsWalletAddress 校验钱包地址格式。存储层不做校验，调用方必须先过这一步。
func IsWalletAddress(address string) bool {
	return walletPattern.MatchString(address)
}
