package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"LicenseOracle-TON/internal/config"
	"LicenseOracle-TON/internal/ledger"
	"LicenseOracle-TON/internal/ledger/evm"
	"LicenseOracle-TON/internal/ledger/ton"
	"LicenseOracle-TON/pkg/logger"
)

// Registry manages a set of chain clients keyed by human readable names.
// Chains without signing credentials are skipped so the daemon can run in
// demo mode with recording disabled.
type Registry struct {
	defaultChain string
	receivers    map[string]string
	clients      map[string]ledger.Client
	log          *slog.Logger
}

// NewRegistry loads chain definitions and instantiates concrete clients.
func NewRegistry(ctx context.Context, cfg config.LedgerConfig) (*Registry, error) {
	defs, err := ledger.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	log := logger.Named("ledger.provider")
	clients := make(map[string]ledger.Client)
	receivers := make(map[string]string)

	for name, chain := range defs.Chains {
		receivers[name] = chain.Receiver

		chainType := strings.ToLower(strings.TrimSpace(chain.Type))
		if chainType == "" {
			chainType = "ton"
		}
		switch chainType {
		case "ton":
			if strings.TrimSpace(cfg.Mnemonic) == "" {
				log.Warn("链缺少助记词，跳过初始化", "chain", name)
				continue
			}
			client, err := ton.NewClient(ctx, ton.Config{
				Name:      name,
				ConfigURL: chain.Endpoint,
				Mnemonic:  cfg.Mnemonic,
				Notes:     chain.Description,
			})
			if err != nil {
				return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
			}
			clients[name] = client
		case "evm":
			if strings.TrimSpace(chain.PrivateKey) == "" {
				log.Warn("链缺少私钥，跳过初始化", "chain", name)
				continue
			}
			client, err := evm.NewClient(ctx, evm.Config{
				Name:       name,
				Endpoint:   chain.Endpoint,
				PrivateKey: chain.PrivateKey,
				Receiver:   chain.Receiver,
			})
			if err != nil {
				return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
			}
			clients[name] = client
		default:
			return nil, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
		}
	}

	defaultChain := cfg.DefaultChain
	if defaultChain == "" {
		names := make([]string, 0, len(receivers))
		for name := range receivers {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			defaultChain = names[0]
		}
	}
	if _, ok := receivers[defaultChain]; !ok {
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}

	return &Registry{
		defaultChain: defaultChain,
		receivers:    receivers,
		clients:      clients,
		log:          log,
	}, nil
}

// DefaultClient returns the client for the configured default chain, or nil
// when credentials were absent and the chain was skipped.
func (r *Registry) DefaultClient() ledger.Client {
	if r == nil {
		return nil
	}
	return r.clients[r.defaultChain]
}

// DefaultReceiver returns the receiving account of the default chain.
func (r *Registry) DefaultReceiver() string {
	if r == nil {
		return ledger.DefaultReceiver
	}
	if receiver, ok := r.receivers[r.defaultChain]; ok && receiver != "" {
		return receiver
	}
	return ledger.DefaultReceiver
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name string) (ledger.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Chains returns the list of defined chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.receivers))
	for name := range r.receivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

var errNoClients = errors.New("未初始化任何链客户端")

// Active reports whether at least one chain client was initialized.
func (r *Registry) Active() error {
	if r == nil || len(r.clients) == 0 {
		return errNoClients
	}
	return nil
}
