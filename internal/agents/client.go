package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "LicenseOracle-TON/internal/errors"
)

const (
	defaultBaseURL = "https://api.openserv.ai"
	defaultTimeout = 30 * time.Second
)

// Agent 描述工作空间内的一个远程智能体。
type Agent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Message 是智能体会话中的一条消息。Author 为 "agent" 或 "user"。
type Message struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// SendResult 保存发送消息后平台立即返回的内容，部分平台会在
// 响应里直接携带智能体的答复文本。
type SendResult struct {
	Text string `json:"message"`
}

// Config 描述调用智能体平台所需的信息。
type Config struct {
	APIKey      string
	BaseURL     string
	WorkspaceID int64
	Timeout     time.Duration
}

// Client 通过 HTTP 访问智能体平台的工作空间接口。
type Client struct {
	apiKey      string
	baseURL     string
	workspaceID int64
	httpClient  *http.Client
}

// NewClient 根据配置创建平台客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供平台 API Key")
	}
	if cfg.WorkspaceID <= 0 {
		return nil, errors.New("工作空间 ID 必须为正整数")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		workspaceID: cfg.WorkspaceID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// WorkspaceID 返回客户端绑定的工作空间。
func (c *Client) WorkspaceID() int64 {
	return c.workspaceID
}

// ListAgents 拉取工作空间内可用的智能体列表。
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	endpoint := fmt.Sprintf("%s/workspaces/%d/agents", c.baseURL, c.workspaceID)

	var decoded struct {
		Agents []struct {
			ID                      int64  `json:"id"`
			Name                    string `json:"name"`
			Description             string `json:"description"`
			CapabilitiesDescription string `json:"capabilitiesDescription"`
		} `json:"agents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &decoded); err != nil {
		return nil, err
	}

	agents := make([]Agent, 0, len(decoded.Agents))
	for _, raw := range decoded.Agents {
		agent := Agent{
			ID:          raw.ID,
			Name:        strings.TrimSpace(raw.Name),
			Description: strings.TrimSpace(raw.Description),
		}
		if agent.Name == "" {
			agent.Name = fmt.Sprintf("Agent %d", raw.ID)
		}
		if agent.Description == "" {
			agent.Description = strings.TrimSpace(raw.CapabilitiesDescription)
		}
		if agent.Description == "" {
			agent.Description = "No description available"
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// SendMessage 把用户问题投递到指定智能体的会话中。
func (c *Client) SendMessage(ctx context.Context, agentID int64, text string) (*SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息内容为空")
	}

	endpoint := fmt.Sprintf("%s/workspaces/%d/agent-chat/%d/message", c.baseURL, c.workspaceID, agentID)
	payload, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return nil, fmt.Errorf("序列化消息失败: %w", err)
	}

	var result SendResult
	if err := c.doJSON(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMessages 拉取指定智能体会话的完整消息历史。
func (c *Client) ListMessages(ctx context.Context, agentID int64) ([]Message, error) {
	endpoint := fmt.Sprintf("%s/workspaces/%d/agent-chat/%d/messages", c.baseURL, c.workspaceID, agentID)

	var decoded struct {
		Messages []Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &decoded); err != nil {
		return nil, err
	}
	return decoded.Messages, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("构建平台请求失败: %w", err)
	}
	req.Header.Set("x-openserv-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeAgentPlatform, err, "请求平台失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return xerrors.New(xerrors.CodeAgentPlatform,
			fmt.Sprintf("平台返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return xerrors.Wrap(xerrors.CodeAgentPlatform, err, "解析平台响应失败")
	}
	return nil
}
