package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"LicenseOracle-TON/internal/agents"
	xerrors "LicenseOracle-TON/internal/errors"
	"LicenseOracle-TON/internal/license"
	"LicenseOracle-TON/internal/ocr"
	"LicenseOracle-TON/internal/oracle"
	"LicenseOracle-TON/pkg/logger"
)

// Recognizer 抽象图片到结构化文本的识别步骤。
type Recognizer interface {
	Process(ctx context.Context, image []byte) (*ocr.Result, error)
}

// LedgerRecorder 抽象账本写入步骤。失败以空引用表达，不抛异常。
type LedgerRecorder interface {
	Record(ctx context.Context, record license.Record) string
}

// Asker 抽象问答交换。
type Asker interface {
	Ask(ctx context.Context, agentID int64, question string) (string, bool, error)
}

// Outcome 是一次证件验证的完整产出，交给聊天层渲染。
type Outcome struct {
	Record        license.Record
	Text          string
	Confidence    float64
	DocumentFound bool
}

// Pipeline 串起验证主流程并持有全部内存状态：识别、裁决、指纹、
// 账本记录与最终落库，中间任何状态都不落盘。
type Pipeline struct {
	recognizer Recognizer
	oracle     *oracle.Oracle
	prints     *license.FingerprintGenerator
	recorder   LedgerRecorder
	broker     Asker
	directory  *agents.Directory
	store      *license.Store
	wallets    *license.WalletStore
	now        func() time.Time
	log        *slog.Logger
}

// PipelineOption 定义可选配置。
type PipelineOption func(*Pipeline)

// WithPipelineClock 注入时钟，测试用。
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline 创建 Pipeline 并初始化空的内存存储。
func NewPipeline(
	recognizer Recognizer,
	recorder LedgerRecorder,
	broker Asker,
	directory *agents.Directory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		recognizer: recognizer,
		oracle:     oracle.New(),
		recorder:   recorder,
		broker:     broker,
		directory:  directory,
		store:      license.NewStore(),
		wallets:    license.NewWalletStore(),
		now:        time.Now,
		log:        logger.Named("verify"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.prints = license.NewFingerprintGenerator(license.WithFingerprintClock(p.now))
	return p
}

// RegisterWallet 校验并登记请求者的钱包地址。重复登记直接覆盖。
func (p *Pipeline) RegisterWallet(requesterID, address string) error {
	address = strings.TrimSpace(address)
	if !license.IsWalletAddress(address) {
		return xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("无效的钱包地址: %s", address))
	}
	p.wallets.Set(requesterID, address)
	p.log.Info("wallet registered", slog.String("requester", requesterID))
	return nil
}

// WalletStatus 返回请求者已登记的钱包地址。
func (p *Pipeline) WalletStatus(requesterID string) (string, bool) {
	return p.wallets.Get(requesterID)
}

// HandlePhoto 执行完整的验证序列：识别、裁决、指纹、账本记录、落库。
// 识别失败或提取到证件号却没有登记钱包时向上返回错误；提取不到证件号
// 返回 DocumentFound 为假的 Outcome，不产生记录；账本失败不拦截结果，
// 引用留空。
func (p *Pipeline) HandlePhoto(ctx context.Context, requesterID string, image []byte) (*Outcome, error) {
	result, err := p.recognizer.Process(ctx, image)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Text: result.Text, Confidence: result.Confidence}
	if result.DocumentNumber == "" {
		p.log.Info("no document number in photo",
			slog.String("requester", requesterID),
			slog.Float64("confidence", result.Confidence))
		return outcome, nil
	}
	outcome.DocumentFound = true

	wallet, ok := p.wallets.Get(requesterID)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "请求者尚未登记钱包地址")
	}

	verdict := p.oracle.Verify(result.DocumentNumber)
	fingerprint := p.prints.Generate(result.DocumentNumber, requesterID, wallet)

	record := license.Record{
		RequesterID:    requesterID,
		WalletAddress:  wallet,
		DocumentNumber: result.DocumentNumber,
		Fingerprint:    fingerprint,
		Verdict:        verdict,
		CreatedAt:      p.now().UTC().Format(time.RFC3339),
	}

	record.LedgerReference = p.recorder.Record(ctx, record)
	p.store.Save(record)

	p.log.Info("verification completed",
		slog.String("requester", requesterID),
		slog.String("verdict", string(verdict)),
		slog.Bool("recorded", record.Recorded()))

	outcome.Record = record
	return outcome, nil
}

// HandleQuestion 把自由文本问题转交当前选中的智能体。
func (p *Pipeline) HandleQuestion(ctx context.Context, question string) (string, bool, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", false, xerrors.New(xerrors.CodeInvalidArgument, "问题内容为空")
	}
	return p.broker.Ask(ctx, p.directory.Current(), question)
}

// Directory 暴露智能体名录，供聊天层渲染列表与切换。
func (p *Pipeline) Directory() *agents.Directory {
	return p.directory
}

// LicenseStatus 返回请求者的最新验证记录。
func (p *Pipeline) LicenseStatus(requesterID string) (license.Record, bool) {
	return p.store.Get(requesterID)
}

// AllLicenses 按首次录入顺序返回全部记录。
func (p *Pipeline) AllLicenses() []license.Record {
	return p.store.All()
}

// Count 返回当前持有记录的请求者数量。
func (p *Pipeline) Count() int {
	return p.store.Size()
}

// ExportTable 把全部记录渲染成等宽文本表，空库返回提示行。
func (p *Pipeline) ExportTable() string {
	records := p.store.All()
	if len(records) == 0 {
		return "No verification records yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %-16s %-10s %-10s %-20s\n",
		"REQUESTER", "DOCUMENT", "VERDICT", "RECORDED", "CREATED"))
	for _, r := range records {
		recorded := "no"
		if r.Recorded() {
			recorded = "yes"
		}
		sb.WriteString(fmt.Sprintf("%-12s %-16s %-10s %-10s %-20s\n",
			r.RequesterID, r.DocumentNumber, string(r.Verdict), recorded, r.CreatedAt))
	}
	return sb.String()
}
