package ton

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	tonapi "github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"LicenseOracle-TON/internal/ledger"
)

// Config describes how to construct a TON client.
type Config struct {
	Name      string
	ConfigURL string
	Mnemonic  string
	Notes     string
}

// Client implements the ledger.Client interface for the TON network. It holds
// a single reusable wallet handle for the process lifetime.
type Client struct {
	name   string
	notes  string
	pool   *liteclient.ConnectionPool
	api    tonapi.APIClientWrapped
	wallet *wallet.Wallet
}

// NewClient dials the configured liteservers and derives the signing wallet
// from the mnemonic phrase.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	configURL := strings.TrimSpace(cfg.ConfigURL)
	if configURL == "" {
		return nil, errors.New("未配置 TON 网络配置地址")
	}
	words := strings.Fields(cfg.Mnemonic)
	if len(words) == 0 {
		return nil, errors.New("未提供签名助记词")
	}

	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("连接 TON 节点失败: %w", err)
	}

	api := tonapi.NewAPIClient(pool).WithRetry()

	w, err := wallet.FromSeed(api, words, wallet.V4R2)
	if err != nil {
		pool.Stop()
		return nil, fmt.Errorf("初始化 TON 钱包失败: %w", err)
	}

	return &Client{
		name:   cfg.Name,
		notes:  cfg.Notes,
		pool:   pool,
		api:    api,
		wallet: w,
	}, nil
}

// Sequence returns the wallet contract's current seqno. An uninitialized
// wallet has no state yet, which counts as sequence zero.
func (c *Client) Sequence(ctx context.Context) (uint64, error) {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("获取主链信息失败: %w", err)
	}

	res, err := c.api.RunGetMethod(ctx, block, c.wallet.WalletAddress(), "seqno")
	if err != nil {
		if strings.Contains(err.Error(), "contract is not initialized") {
			return 0, nil
		}
		return 0, fmt.Errorf("读取 seqno 失败: %w", err)
	}

	seqno, err := res.Int(0)
	if err != nil {
		return 0, fmt.Errorf("解析 seqno 失败: %w", err)
	}
	return seqno.Uint64(), nil
}

// Submit wraps the payload cell in an internal transfer and hands it to the
// wallet contract without waiting for confirmation; the recorder owns the
// confirmation loop.
func (c *Client) Submit(ctx context.Context, transfer ledger.Transfer) error {
	to, err := address.ParseAddr(transfer.To)
	if err != nil {
		return fmt.Errorf("解析接收账户失败: %w", err)
	}
	amount, err := tlb.FromTON(transfer.Amount)
	if err != nil {
		return fmt.Errorf("解析转账金额失败: %w", err)
	}

	body := cell.BeginCell().
		MustStoreUInt(uint64(transfer.Payload.Op), 32).
		MustStoreSlice(transfer.Payload.Digest[:], 256).
		MustStoreUInt(uint64(transfer.Payload.VerdictCode), 8).
		MustStoreUInt(transfer.Payload.UnixMilli, 64).
		MustStoreStringSnake(transfer.Payload.RequesterID).
		EndCell()

	if err := c.wallet.Send(ctx, wallet.SimpleMessage(to, amount, body)); err != nil {
		return fmt.Errorf("发送交易失败: %w", err)
	}
	return nil
}

// RecentTransactions lists the wallet account's latest transactions, newest
// first, flagging entries whose incoming message is of internal type.
func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]ledger.Transaction, error) {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取主链信息失败: %w", err)
	}

	account, err := c.api.GetAccount(ctx, block, c.wallet.WalletAddress())
	if err != nil {
		return nil, fmt.Errorf("读取账户状态失败: %w", err)
	}
	if account == nil || !account.IsActive {
		return nil, nil
	}

	if limit <= 0 {
		limit = 10
	}
	list, err := c.api.ListTransactions(ctx, c.wallet.WalletAddress(), uint32(limit), account.LastTxLT, account.LastTxHash)
	if err != nil {
		return nil, fmt.Errorf("读取交易列表失败: %w", err)
	}

	// ListTransactions 返回从旧到新，这里倒序成最新在前。
	results := make([]ledger.Transaction, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		tx := list[i]
		entry := ledger.Transaction{
			Hash: hex.EncodeToString(tx.Hash),
			At:   time.Unix(int64(tx.Now), 0),
		}
		if tx.IO.In != nil && tx.IO.In.MsgType == tlb.MsgTypeInternal {
			entry.Internal = true
		}
		results = append(results, entry)
	}
	return results, nil
}

// Balance returns the wallet balance in whole-coin units.
func (c *Client) Balance(ctx context.Context) (string, error) {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("获取主链信息失败: %w", err)
	}
	account, err := c.api.GetAccount(ctx, block, c.wallet.WalletAddress())
	if err != nil {
		return "", fmt.Errorf("读取账户状态失败: %w", err)
	}
	if account == nil || account.State == nil {
		return "0", nil
	}
	return account.State.Balance.String(), nil
}

// Deployed reports whether the wallet contract is active on chain.
func (c *Client) Deployed(ctx context.Context) (bool, error) {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return false, fmt.Errorf("获取主链信息失败: %w", err)
	}
	account, err := c.api.GetAccount(ctx, block, c.wallet.WalletAddress())
	if err != nil {
		return false, fmt.Errorf("读取账户状态失败: %w", err)
	}
	return account != nil && account.IsActive, nil
}

// Address returns the wallet address in user-friendly form.
func (c *Client) Address() string {
	return c.wallet.WalletAddress().String()
}

// Close releases the liteserver connections.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Stop()
	}
}

var _ ledger.Client = (*Client)(nil)
