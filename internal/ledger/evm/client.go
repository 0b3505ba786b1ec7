package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"LicenseOracle-TON/internal/ledger"
)

// Config describes how to construct an EVM client.
type Config struct {
	Name       string
	Endpoint   string
	PrivateKey string
	Receiver   string
}

// Client implements the ledger.Client interface for EVM compatible networks.
// JSON-RPC nodes expose no per-account transaction listing, so submitted
// transactions are journaled locally for the confirmation loop to read back.
type Client struct {
	name    string
	rpc     *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	mu      sync.Mutex
	journal []ledger.Transaction
}

// NewClient dials the JSON-RPC endpoint and derives the sending account from
// the hex encoded private key.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("未配置 EVM 节点地址")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}

	rpc, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("连接 EVM 节点失败: %w", err)
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("获取链 ID 失败: %w", err)
	}

	return &Client{
		name:    cfg.Name,
		rpc:     rpc,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Sequence returns the account nonce at the latest block, which advances once
// a submitted transaction is mined.
func (c *Client) Sequence(ctx context.Context) (uint64, error) {
	nonce, err := c.rpc.NonceAt(ctx, c.from, nil)
	if err != nil {
		return 0, fmt.Errorf("读取账户 nonce 失败: %w", err)
	}
	return nonce, nil
}

// Submit encodes the payload as calldata and sends a signed value transfer to
// the receiving account.
func (c *Client) Submit(ctx context.Context, transfer ledger.Transfer) error {
	if !common.IsHexAddress(transfer.To) {
		return fmt.Errorf("无效的接收账户: %s", transfer.To)
	}
	to := common.HexToAddress(transfer.To)

	value, err := parseEther(transfer.Amount)
	if err != nil {
		return fmt.Errorf("解析转账金额失败: %w", err)
	}

	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return fmt.Errorf("读取待处理 nonce 失败: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("获取 gas 价格失败: %w", err)
	}

	data := encodePayload(transfer.Payload)

	tx := types.NewTransaction(nonce, to, value, callGasLimit(data), gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("签名交易失败: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("发送交易失败: %w", err)
	}

	c.mu.Lock()
	c.journal = append([]ledger.Transaction{{
		Hash:     signed.Hash().Hex(),
		Internal: true,
		At:       time.Now(),
	}}, c.journal...)
	c.mu.Unlock()
	return nil
}

// RecentTransactions returns the locally journaled submissions, newest first.
func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]ledger.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit <= 0 || limit > len(c.journal) {
		limit = len(c.journal)
	}
	out := make([]ledger.Transaction, limit)
	copy(out, c.journal[:limit])
	return out, nil
}

// Balance returns the sending account balance converted to whole-coin units.
func (c *Client) Balance(ctx context.Context) (string, error) {
	wei, err := c.rpc.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return "", fmt.Errorf("读取账户余额失败: %w", err)
	}
	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return ether.Text('f', 6), nil
}

// Deployed reports whether the sending account has been used on chain before.
func (c *Client) Deployed(ctx context.Context) (bool, error) {
	nonce, err := c.rpc.NonceAt(ctx, c.from, nil)
	if err != nil {
		return false, fmt.Errorf("读取账户 nonce 失败: %w", err)
	}
	return nonce > 0, nil
}

// Address returns the checksummed sending account address.
func (c *Client) Address() string {
	return c.from.Hex()
}

// Close releases the RPC connection.
func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// encodePayload lays the payload out big endian: operation code, digest,
// verdict code, millisecond timestamp, then the requester identifier bytes.
func encodePayload(p ledger.Payload) []byte {
	buf := make([]byte, 0, 4+32+1+8+len(p.RequesterID))
	buf = binary.BigEndian.AppendUint32(buf, p.Op)
	buf = append(buf, p.Digest[:]...)
	buf = append(buf, p.VerdictCode)
	buf = binary.BigEndian.AppendUint64(buf, p.UnixMilli)
	buf = append(buf, []byte(p.RequesterID)...)
	return buf
}

// callGasLimit sizes the gas limit for a value transfer with calldata: the
// base transfer cost plus the worst-case per-byte calldata cost.
func callGasLimit(data []byte) uint64 {
	return 21000 + uint64(len(data))*16
}

// parseEther converts a decimal coin amount such as "0.01" to wei.
func parseEther(amount string) (*big.Int, error) {
	f, ok := new(big.Float).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("无法解析金额: %s", amount)
	}
	wei, _ := new(big.Float).Mul(f, big.NewFloat(1e18)).Int(nil)
	if wei.Sign() < 0 {
		return nil, errors.New("金额不能为负")
	}
	return wei, nil
}

var _ ledger.Client = (*Client)(nil)
