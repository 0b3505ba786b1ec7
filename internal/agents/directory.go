package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"LicenseOracle-TON/pkg/logger"
)

const (
	defaultDirectoryTTL = 5 * time.Minute
	directoryCacheKey   = "agents"
)

// Lister 抽象智能体列表的来源，便于注入测试替身。
type Lister interface {
	ListAgents(ctx context.Context) ([]Agent, error)
}

// fallbackAgents 在平台不可达且没有任何缓存时兜底使用。
func fallbackAgents() []Agent {
	return []Agent{
		{ID: 1, Name: "Project Manager", Description: "Manages projects and coordinates tasks"},
		{ID: 2, Name: "Research Assistant", Description: "Conducts research and provides detailed information"},
		{ID: 3, Name: "General Assistant", Description: "Provides general help and support"},
	}
}

// Directory 缓存工作空间的智能体名录并跟踪当前选中的智能体。
// 列表在 TTL 内直接命中缓存；拉取失败时退回最近一次成功的结果。
type Directory struct {
	lister Lister
	cache  gcache.Cache
	ttl    time.Duration
	log    *slog.Logger

	mu       sync.RWMutex
	current  int64
	lastGood []Agent
}

// DirectoryOption 定义可选配置。
type DirectoryOption func(*Directory)

// WithDirectoryTTL 覆盖名录缓存的有效期。
func WithDirectoryTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// NewDirectory 创建名录，defaultAgent 为初始选中的智能体。
func NewDirectory(lister Lister, defaultAgent int64, opts ...DirectoryOption) *Directory {
	d := &Directory{
		lister:  lister,
		cache:   gcache.New(1).LRU().Build(),
		ttl:     defaultDirectoryTTL,
		current: defaultAgent,
		log:     logger.Named("agents.directory"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Current 返回当前选中的智能体。
func (d *Directory) Current() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// SetCurrent 切换当前选中的智能体。
func (d *Directory) SetCurrent(agentID int64) {
	d.mu.Lock()
	d.current = agentID
	d.mu.Unlock()
	d.log.Info("current agent switched", slog.Int64("agent_id", agentID))
}

// List 返回智能体名录，TTL 内命中缓存。
func (d *Directory) List(ctx context.Context) []Agent {
	if cached, err := d.cache.Get(directoryCacheKey); err == nil {
		if agents, ok := cached.([]Agent); ok {
			return agents
		}
	}
	return d.refresh(ctx)
}

// ForceRefresh 丢弃缓存并立即重新拉取。
func (d *Directory) ForceRefresh(ctx context.Context) []Agent {
	d.cache.Remove(directoryCacheKey)
	return d.refresh(ctx)
}

// Name 按标识查找智能体名称，查不到时返回占位名。
func (d *Directory) Name(ctx context.Context, agentID int64) string {
	for _, agent := range d.List(ctx) {
		if agent.ID == agentID {
			return agent.Name
		}
	}
	return fmt.Sprintf("Agent %d", agentID)
}

func (d *Directory) refresh(ctx context.Context) []Agent {
	agents, err := d.lister.ListAgents(ctx)
	if err != nil || len(agents) == 0 {
		if err != nil {
			d.log.Warn("agent listing failed", slog.String("error", err.Error()))
		}
		d.mu.RLock()
		lastGood := d.lastGood
		d.mu.RUnlock()
		if len(lastGood) > 0 {
			return lastGood
		}
		d.log.Info("using built-in fallback agents")
		return fallbackAgents()
	}

	if err := d.cache.SetWithExpire(directoryCacheKey, agents, d.ttl); err != nil {
		d.log.Debug("directory cache write failed", slog.String("error", err.Error()))
	}
	d.mu.Lock()
	d.lastGood = agents
	d.mu.Unlock()

	d.log.Info("agent directory refreshed", slog.Int("count", len(agents)))
	return agents
}
