package ledger

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChainDefinitions models the structure of configs/chains.yaml.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition describes a single chain endpoint definition.
type ChainDefinition struct {
	Type        string `yaml:"type"`
	Endpoint    string `yaml:"endpoint"`
	Receiver    string `yaml:"receiver"`
	PrivateKey  string `yaml:"private_key"`
	Description string `yaml:"description"`
}

// defaultChainDefinitions 在未提供链配置文件时使用，指向 TON 测试网。
func defaultChainDefinitions() ChainDefinitions {
	return ChainDefinitions{
		Chains: map[string]ChainDefinition{
			"ton-testnet": {
				Type:        "ton",
				Endpoint:    "https://ton.org/testnet-global.config.json",
				Receiver:    DefaultReceiver,
				Description: "TON testnet via public liteservers",
			},
		},
	}
}

// LoadChainDefinitions parses the YAML file containing chain metadata.
// An empty path yields the built-in TON testnet definition.
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return defaultChainDefinitions(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}

	var defs ChainDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if len(defs.Chains) == 0 {
		return defaultChainDefinitions(), nil
	}
	for name, chain := range defs.Chains {
		if chain.Receiver == "" {
			chain.Receiver = DefaultReceiver
			defs.Chains[name] = chain
		}
	}
	return defs, nil
}
