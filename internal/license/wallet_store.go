package license

import "sync"

// WalletStore 保存请求者与钱包地址的一对一绑定，生命周期独立于验证记录：
// 用户可以在验证前后任意时刻设置或替换地址。
type WalletStore struct {
	mu      sync.RWMutex
	wallets map[string]string
}

// NewWalletStore 创建 WalletStore。
func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[string]string)}
}

// Set 写入或覆盖绑定。地址格式由调用方负责校验。
func (s *WalletStore) Set(requesterID, walletAddress string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[requesterID] = walletAddress
}

// Get 返回绑定的钱包地址，从未设置时第二个返回值为 false。
func (s *WalletStore) Get(requesterID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	address, ok := s.wallets[requesterID]
	return address, ok
}

// Has 报告请求者是否已绑定钱包。
func (s *WalletStore) Has(requesterID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wallets[requesterID]
	return ok
}
