package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	xerrors "LicenseOracle-TON/internal/errors"
)

// 必填环境变量，缺失任意一个都会在启动阶段直接失败。
const (
	EnvBotToken       = "TELEGRAM_BOT_TOKEN"
	EnvPlatformAPIKey = "OPENSERV_API_KEY"
	EnvWorkspaceID    = "WORKSPACE_ID"
	EnvAgentID        = "AGENT_ID"
)

// 可选环境变量，缺失时降级为演示模式或使用默认值。
const (
	EnvLedgerAPIKey   = "TON_API_KEY"
	EnvLedgerMnemonic = "TON_MNEMONIC"
	EnvConfigFile     = "ORACLED_CONFIG"
)

// Config 描述守护进程在启动阶段需要加载的全部配置。
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Platform PlatformConfig `json:"platform"`
	Ledger   LedgerConfig   `json:"ledger"`
	Server   ServerConfig   `json:"server"`
	Log      LogConfig      `json:"log"`
}

// TelegramConfig 保存聊天适配层所需的令牌。
type TelegramConfig struct {
	Token string `json:"-"`
}

// PlatformConfig 描述远程智能体平台的访问方式与轮询参数。
type PlatformConfig struct {
	APIKey              string `json:"-"`
	BaseURL             string `json:"base_url"`
	WorkspaceID         int64  `json:"workspace_id"`
	DefaultAgentID      int64  `json:"default_agent_id"`
	ReplyTimeoutSeconds int    `json:"reply_timeout_seconds"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	DirectoryTTLSeconds int    `json:"directory_ttl_seconds"`
}

// LedgerConfig 描述账本记录器的钱包与确认窗口参数。
type LedgerConfig struct {
	APIKey                 string `json:"-"`
	Mnemonic               string `json:"-"`
	ChainConfig            string `json:"chain_config"`
	DefaultChain           string `json:"default_chain"`
	ConfirmTimeoutSeconds  int    `json:"confirm_timeout_seconds"`
	ConfirmIntervalSeconds int    `json:"confirm_interval_seconds"`
}

// ServerConfig 控制只读状态 API 的监听地址。
type ServerConfig struct {
	Address string `json:"address"`
}

// LogConfig 控制日志输出。
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// FromEnv 读取环境变量并合并可选配置文件，返回完整配置。
// 任何必填变量缺失都会返回 CONFIGURATION 错误，调用方应立即退出。
func FromEnv() (*Config, error) {
	cfg := &Config{}

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var missing []string

	cfg.Telegram.Token = strings.TrimSpace(os.Getenv(EnvBotToken))
	if cfg.Telegram.Token == "" {
		missing = append(missing, EnvBotToken)
	}

	cfg.Platform.APIKey = strings.TrimSpace(os.Getenv(EnvPlatformAPIKey))
	if cfg.Platform.APIKey == "" {
		missing = append(missing, EnvPlatformAPIKey)
	}

	workspaceID, err := requiredInt(EnvWorkspaceID, &missing)
	if err != nil {
		return nil, err
	}
	cfg.Platform.WorkspaceID = workspaceID

	agentID, err := requiredInt(EnvAgentID, &missing)
	if err != nil {
		return nil, err
	}
	cfg.Platform.DefaultAgentID = agentID

	if len(missing) > 0 {
		return nil, xerrors.New(xerrors.CodeConfiguration,
			fmt.Sprintf("缺少必填环境变量: %s", strings.Join(missing, ", ")))
	}

	// 账本凭据是可选的，缺失时记录器进入演示模式。
	cfg.Ledger.APIKey = strings.TrimSpace(os.Getenv(EnvLedgerAPIKey))
	cfg.Ledger.Mnemonic = strings.TrimSpace(os.Getenv(EnvLedgerMnemonic))

	cfg.applyDefaults()
	return cfg, nil
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, xerrors.New(xerrors.CodeConfiguration, "配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "打开配置文件失败")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "读取配置文件失败")
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err, "解析配置失败")
	}
	return &cfg, nil
}

func requiredInt(name string, missing *[]string) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		*missing = append(*missing, name)
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeConfiguration, err,
			fmt.Sprintf("环境变量 %s 需要是整数", name))
	}
	return value, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults() {
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = "https://api.openserv.ai"
	}
	if c.Platform.ReplyTimeoutSeconds <= 0 {
		c.Platform.ReplyTimeoutSeconds = 120
	}
	if c.Platform.PollIntervalSeconds <= 0 {
		c.Platform.PollIntervalSeconds = 5
	}
	if c.Platform.DirectoryTTLSeconds <= 0 {
		c.Platform.DirectoryTTLSeconds = 300
	}

	if c.Ledger.ConfirmTimeoutSeconds <= 0 {
		c.Ledger.ConfirmTimeoutSeconds = 60
	}
	if c.Ledger.ConfirmIntervalSeconds <= 0 {
		c.Ledger.ConfirmIntervalSeconds = 2
	}
	if c.Ledger.DefaultChain == "" {
		c.Ledger.DefaultChain = "ton-testnet"
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8081"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}
