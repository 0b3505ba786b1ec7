package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LicenseOracle-TON/internal/agents"
	"LicenseOracle-TON/internal/api"
	"LicenseOracle-TON/internal/bot"
	"LicenseOracle-TON/internal/config"
	"LicenseOracle-TON/internal/ledger"
	"LicenseOracle-TON/internal/ledger/provider"
	"LicenseOracle-TON/internal/ocr"
	"LicenseOracle-TON/internal/verify"
	"LicenseOracle-TON/pkg/logger"
)

// main 是证件验证守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("oracled 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}); err != nil {
		return err
	}
	defer logger.Sync()
	slog.Info("oracled starting")

	// 账本层。凭据缺失时注册表跳过初始化，记录器进入演示模式。
	registry, err := provider.NewRegistry(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer registry.Close()

	chainClient := registry.DefaultClient()
	if chainClient == nil {
		slog.Warn("no chain credentials, ledger recording disabled")
	} else {
		slog.Info("ledger ready", slog.String("address", chainClient.Address()))
	}
	recorder := ledger.NewRecorder(chainClient,
		ledger.WithReceiver(registry.DefaultReceiver()),
		ledger.WithConfirmWindow(
			time.Duration(cfg.Ledger.ConfirmTimeoutSeconds)*time.Second,
			time.Duration(cfg.Ledger.ConfirmIntervalSeconds)*time.Second,
		))

	// 智能体平台层。
	platform, err := agents.NewClient(agents.Config{
		APIKey:      cfg.Platform.APIKey,
		BaseURL:     cfg.Platform.BaseURL,
		WorkspaceID: cfg.Platform.WorkspaceID,
	})
	if err != nil {
		return err
	}
	broker := agents.NewBroker(platform,
		agents.WithReplyWindow(
			time.Duration(cfg.Platform.ReplyTimeoutSeconds)*time.Second,
			time.Duration(cfg.Platform.PollIntervalSeconds)*time.Second,
		))
	directory := agents.NewDirectory(platform, cfg.Platform.DefaultAgentID,
		agents.WithDirectoryTTL(time.Duration(cfg.Platform.DirectoryTTLSeconds)*time.Second))

	// 识别层。
	processor := ocr.NewProcessor(ocr.NewTesseractEngine("eng"))

	pipeline := verify.NewPipeline(processor, recorder, broker, directory)

	// 启动时预热名录，失败不阻塞主流程。
	if list := directory.List(ctx); len(list) > 0 {
		slog.Info("agent directory warmed",
			slog.Int("count", len(list)),
			slog.String("current", directory.Name(ctx, directory.Current())))
	}

	adapter, err := bot.New(cfg.Telegram.Token, pipeline, chainClient)
	if err != nil {
		return err
	}

	botCtx, botCancel := context.WithCancel(ctx)
	defer botCancel()
	go func() {
		if err := adapter.Run(botCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("chat adapter exited", slog.String("error", err.Error()))
		}
	}()

	server := api.NewServer(cfg.Server.Address, pipeline)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
