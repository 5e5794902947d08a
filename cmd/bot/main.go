package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/token_swap_level/internal/domain"
	"github.com/vitos/token_swap_level/internal/infrastructure/chain"
	"github.com/vitos/token_swap_level/internal/infrastructure/feed"
	"github.com/vitos/token_swap_level/internal/infrastructure/logger"
	"github.com/vitos/token_swap_level/internal/infrastructure/notify"
	"github.com/vitos/token_swap_level/internal/infrastructure/storage"
	"github.com/vitos/token_swap_level/internal/usecase"
	"github.com/vitos/token_swap_level/internal/web"
)

type Config struct {
	Chain struct {
		RPCURL        string `yaml:"rpc_url"`
		RouterAddress string `yaml:"router_address"`
		WRONAddress   string `yaml:"wron_address"`
		StableAddress string `yaml:"stable_address"`
	} `yaml:"chain"`
	Feed struct {
		BaseURL string `yaml:"base_url"`
		Network string `yaml:"network"`
	} `yaml:"feed"`
	Trading struct {
		Slippage        float64 `yaml:"slippage"`
		Attempts        int     `yaml:"attempts"`
		DeadlineMinutes int     `yaml:"deadline_minutes"`
		IntervalSeconds int     `yaml:"interval_seconds"`
		Concurrency     int     `yaml:"concurrency"`
		AutoStart       bool    `yaml:"auto_start"`
	} `yaml:"trading"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level    string `yaml:"level"`
		TradeLog string `yaml:"trade_log"`
	} `yaml:"logging"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Secrets come from the environment, never from the config file.
	privateKey := os.Getenv("PRIVATE_KEY")
	apiKey := os.Getenv("API_KEY")
	tgToken := os.Getenv("TELEGRAM_API_TOKEN")
	tgChatID := os.Getenv("TELEGRAM_CHAT_ID")
	if privateKey == "" || apiKey == "" {
		fmt.Println("PRIVATE_KEY and API_KEY must be set")
		os.Exit(1)
	}

	// 2. Init Logger
	logPath := cfg.Logging.TradeLog
	if logPath == "" {
		logPath = "trade_bot.log"
	}
	log, err := logger.NewFileLogger(logPath, cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "bot.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Chain Backend
	ctx := context.Background()
	backend, err := chain.NewRoninAdapter(ctx, cfg.Chain.RPCURL, privateKey,
		cfg.Chain.RouterAddress, cfg.Chain.WRONAddress, log)
	if err != nil {
		log.Fatal("Failed to init chain backend", zap.Error(err))
	}
	defer backend.Close()
	log.Info("acting account", zap.String("address", backend.AccountAddress()))

	// 5. Init Price Feed
	priceFeed := feed.NewGeckoTerminal(cfg.Feed.BaseURL, cfg.Feed.Network, log)

	// 6. Init Services
	tokenService := usecase.NewTokenService(store, log)
	executor := usecase.NewSwapExecutor(backend, usecase.ExecutorConfig{
		Slippage: cfg.Trading.Slippage,
		Attempts: cfg.Trading.Attempts,
		Deadline: time.Duration(cfg.Trading.DeadlineMinutes) * time.Minute,
	}, log)

	hub := web.NewHub(log)
	notifiers := notify.Fanout{hub}

	bot := usecase.NewCycleController(tokenService, priceFeed, executor, store, &notifiers, log,
		usecase.ControllerConfig{
			Interval:      time.Duration(cfg.Trading.IntervalSeconds) * time.Second,
			Concurrency:   cfg.Trading.Concurrency,
			StableAddress: cfg.Chain.StableAddress,
			Slippage:      cfg.Trading.Slippage,
		})

	// 7. Init Telegram (optional)
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if tgToken != "" && tgChatID != "" {
		tg := notify.NewTelegram(tgToken, tgChatID, bot, tokenService, backend, log)
		notifiers = append(notifiers, tg)
		go tg.Listen(sigCtx)
		log.Info("telegram notifier enabled")
	} else {
		log.Info("telegram not configured, chat notifications disabled")
	}

	// 8. Start Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, apiKey, bot, tokenService, executor, backend, store, hub, &notifiers, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Auto-start the trading loop if configured
	if cfg.Trading.AutoStart {
		if err := bot.Start(); err != nil {
			log.Error("Failed to auto-start bot", zap.Error(err))
		}
	}

	// 10. Wait for Shutdown
	<-sigCtx.Done()

	log.Info("Shutting down...")
	if bot.Running() {
		if err := bot.Stop(); err != nil && err != domain.ErrBotNotRunning {
			log.Error("Failed to stop bot", zap.Error(err))
		}
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
