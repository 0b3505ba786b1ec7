package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	xerrors "LicenseOracle-TON/internal/errors"
	"LicenseOracle-TON/internal/ledger"
	"LicenseOracle-TON/internal/verify"
	"LicenseOracle-TON/pkg/logger"
)

const (
	callbackAgentPrefix = "agent_"
	maxPhotoBytes       = 10 << 20
)

// Bot 是聊天适配层：把命令与照片翻译成流水线调用，把结果渲染回会话。
// 它自身不持有任何业务状态。
type Bot struct {
	api      *tgbotapi.BotAPI
	pipeline *verify.Pipeline
	chain    ledger.Client
	files    *http.Client
	log      *slog.Logger
}

// New 创建 Bot。chain 为 nil 时 /wallet 显示演示模式。
func New(token string, pipeline *verify.Pipeline, chain ledger.Client) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("初始化聊天接口失败: %w", err)
	}
	return &Bot{
		api:      api,
		pipeline: pipeline,
		chain:    chain,
		files:    &http.Client{Timeout: 30 * time.Second},
		log:      logger.Named("bot"),
	}, nil
}

// Run 以长轮询方式消费更新，直到上下文取消。
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Info("chat adapter started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return errors.New("更新通道已关闭")
			}
			// 每条更新独立处理，长轮询的问答不阻塞其他会话。
			go b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil {
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, startMessage(b.currentAgentName(ctx)))
	case "help":
		b.reply(msg.Chat.ID, helpMessage(b.currentAgentName(ctx)))
	case "ask":
		b.handleAsk(ctx, msg)
	case "agents":
		b.handleAgents(ctx, msg)
	case "agent":
		b.handleAgentPicker(ctx, msg)
	case "setwallet":
		b.handleSetWallet(msg)
	case "license":
		b.handleLicense(msg)
	case "licenses":
		b.reply(msg.Chat.ID, licensesListMessage(b.pipeline.AllLicenses()))
	case "export":
		b.reply(msg.Chat.ID, exportMessage(b.pipeline.ExportTable(), b.pipeline.Count()))
	case "wallet":
		b.handleWallet(ctx, msg)
	}
}

// requesterID 优先取用户名，缺失时退回数字标识。
func requesterID(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return "unknown"
	}
	if msg.From.UserName != "" {
		return msg.From.UserName
	}
	return strconv.FormatInt(msg.From.ID, 10)
}

func (b *Bot) currentAgentName(ctx context.Context) string {
	directory := b.pipeline.Directory()
	return directory.Name(ctx, directory.Current())
}

func (b *Bot) handleAsk(ctx context.Context, msg *tgbotapi.Message) {
	question := strings.TrimSpace(msg.CommandArguments())
	if question == "" {
		b.reply(msg.Chat.ID, "❌ Please write a question: /ask [your question]")
		return
	}

	b.sendTyping(msg.Chat.ID)
	b.reply(msg.Chat.ID, "✅ Question sent to agent. Getting response...")

	reply, got, err := b.pipeline.HandleQuestion(ctx, question)
	if err != nil {
		b.log.Warn("question handling failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "❌ Error communicating with agent. Please try again.")
		return
	}
	if !got {
		b.reply(msg.Chat.ID, "⏰ No response received within timeout. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, agentReplyMessage(b.currentAgentName(ctx), reply))
}

func (b *Bot) handleAgents(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, "🔍 Fetching agents from workspace...")
	list := b.pipeline.Directory().ForceRefresh(ctx)
	b.reply(msg.Chat.ID, agentListMessage(list, b.currentAgentName(ctx)))
}

func (b *Bot) handleAgentPicker(ctx context.Context, msg *tgbotapi.Message) {
	list := b.pipeline.Directory().List(ctx)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for _, agent := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s (ID: %d)", agent.Name, agent.ID),
				fmt.Sprintf("%s%d", callbackAgentPrefix, agent.ID),
			)))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, "🔄 Select an agent:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(out); err != nil {
		b.log.Warn("agent picker send failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Debug("callback ack failed", slog.String("error", err.Error()))
		}
	}()

	if cb.Message == nil || !strings.HasPrefix(cb.Data, callbackAgentPrefix) {
		return
	}
	agentID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, callbackAgentPrefix), 10, 64)
	if err != nil {
		return
	}

	chatID := cb.Message.Chat.ID
	for _, agent := range b.pipeline.Directory().List(ctx) {
		if agent.ID != agentID {
			continue
		}
		b.pipeline.Directory().SetCurrent(agentID)
		edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID,
			fmt.Sprintf("✅ Switched to: %s\n\n%s\n\nYou can now use /ask to interact with this agent!",
				agent.Name, agent.Description))
		if _, err := b.api.Send(edit); err != nil {
			b.log.Warn("switch confirmation failed", slog.String("error", err.Error()))
		}
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID,
		fmt.Sprintf("❌ Agent with ID %d not found", agentID))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("switch failure notice failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) handleSetWallet(msg *tgbotapi.Message) {
	address := strings.TrimSpace(msg.CommandArguments())
	if address == "" {
		b.reply(msg.Chat.ID, "❌ Please provide a TON wallet address: /setwallet EQCx...YtR9")
		return
	}

	id := requesterID(msg)
	if err := b.pipeline.RegisterWallet(id, address); err != nil {
		b.reply(msg.Chat.ID, "❌ Invalid TON wallet address format")
		return
	}
	b.reply(msg.Chat.ID, walletRegisteredMessage(id, address))
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	id := requesterID(msg)
	b.log.Info("photo received", slog.String("requester", id))
	b.reply(msg.Chat.ID, "📸 Processing license image...")

	// 取分辨率最高的版本。
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	image, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.Warn("photo download failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "❌ Error processing license image. Please try again.")
		return
	}

	outcome, err := b.pipeline.HandlePhoto(ctx, id, image)
	if err != nil {
		b.log.Warn("photo handling failed", slog.String("error", err.Error()))
		if xerrors.CodeOf(err) == xerrors.CodeInvalidArgument {
			b.reply(msg.Chat.ID, "❌ Please set your TON wallet address first: /setwallet EQCx...YtR9")
			return
		}
		b.reply(msg.Chat.ID, "❌ Error processing license image. Please try again.")
		return
	}
	if !outcome.DocumentFound {
		b.reply(msg.Chat.ID, noNumberMessage(outcome.Text))
		return
	}
	b.reply(msg.Chat.ID, verificationMessage(outcome))
}

func (b *Bot) handleLicense(msg *tgbotapi.Message) {
	record, ok := b.pipeline.LicenseStatus(requesterID(msg))
	if !ok {
		b.reply(msg.Chat.ID, "❌ No license data found. Please upload your license photo first.")
		return
	}
	b.reply(msg.Chat.ID, licenseStatusMessage(record))
}

func (b *Bot) handleWallet(ctx context.Context, msg *tgbotapi.Message) {
	if b.chain == nil {
		b.reply(msg.Chat.ID, walletInfoMessage("not configured (demo mode)", false, b.pipeline.Count()))
		return
	}

	balance, err := b.chain.Balance(ctx)
	if err != nil {
		b.log.Warn("balance lookup failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "❌ Could not get wallet information")
		return
	}
	active, err := b.chain.Deployed(ctx)
	if err != nil {
		active = false
	}
	b.reply(msg.Chat.ID, walletInfoMessage(balance, active, b.pipeline.Count()))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.files.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("文件下载返回状态 %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("reply failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug("typing indicator failed", slog.String("error", err.Error()))
	}
}
